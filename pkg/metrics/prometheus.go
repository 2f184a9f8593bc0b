package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	symbol       string
	tickDuration prometheus.Histogram
	decisions    *prometheus.CounterVec
	anomalies    *prometheus.CounterVec
	plans        *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastMid      *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder for one symbol.
func New(symbol string) *Recorder {
	return &Recorder{
		symbol: symbol,
		tickDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "toxictide_tick_duration_seconds",
				Help:    "Duration of one full decision tick",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toxictide_decisions_total",
				Help: "Risk decisions by outcome",
			},
			[]string{"outcome"},
		),
		anomalies: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toxictide_anomaly_reports_total",
				Help: "Anomaly reports by detector and severity",
			},
			[]string{"detector", "level"},
		),
		plans: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toxictide_execution_plans_total",
				Help: "Execution plans by mode",
			},
			[]string{"mode"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toxictide_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastMid: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "toxictide_last_mid_price",
				Help: "Last observed mid price for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordTickDuration records one tick's wall time.
func (r *Recorder) RecordTickDuration(seconds float64) {
	r.tickDuration.Observe(seconds)
}

// RecordDecision counts one risk decision by outcome.
func (r *Recorder) RecordDecision(outcome string) {
	r.decisions.WithLabelValues(outcome).Inc()
}

// RecordAnomaly counts one detector report by severity.
func (r *Recorder) RecordAnomaly(detector, level string) {
	r.anomalies.WithLabelValues(detector, level).Inc()
}

// RecordPlan counts one execution plan by mode.
func (r *Recorder) RecordPlan(mode string) {
	r.plans.WithLabelValues(mode).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordMid records the latest mid price.
func (r *Recorder) RecordMid(price float64) {
	r.lastMid.WithLabelValues(r.symbol).Set(price)
}
