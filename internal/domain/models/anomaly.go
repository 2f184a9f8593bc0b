package models

import "time"

// Severity is the three-level anomaly grading shared by the detectors and
// the stress index. Ordering is OK < WARN < DANGER.
type Severity string

const (
	SeverityOK     Severity = "OK"
	SeverityWarn   Severity = "WARN"
	SeverityDanger Severity = "DANGER"
)

var severityRank = map[Severity]int{
	SeverityOK:     0,
	SeverityWarn:   1,
	SeverityDanger: 2,
}

// Rank returns the numeric ordering of the severity.
func (s Severity) Rank() int { return severityRank[s] }

// MaxSeverity returns the most severe of the given levels.
func MaxSeverity(levels ...Severity) Severity {
	out := SeverityOK
	for _, l := range levels {
		if l.Rank() > out.Rank() {
			out = l
		}
	}
	return out
}

// LiquidityState is a coarse classification of book quality on the OAD report.
type LiquidityState string

const (
	LiquidityThick LiquidityState = "THICK"
	LiquidityThin  LiquidityState = "THIN"
	LiquidityToxic LiquidityState = "TOXIC"
)

// Detector names carried on AnomalyReport.
const (
	DetectorOrderbook = "oad"
	DetectorVolume    = "vad"
)

// Anomaly subtypes reported by the detectors.
const (
	AnomalySpreadBlowout  = "spread_blowout"
	AnomalyImpactSpike    = "impact_spike"
	AnomalyMsgRateSpike   = "msg_rate_spike"
	AnomalyLiquidityGap   = "liquidity_gap"
	AnomalySpreadGrowth   = "spread_growth"
	AnomalyVolumeBurst    = "volume_burst"
	AnomalyVolumeDrought  = "volume_drought"
	AnomalyWhaleTrade     = "whale_trade"
	AnomalyToxicFlow      = "toxic_flow"
	AnomalyTradeRateSpike = "trade_rate_spike"
)

// AnomalyReport is the per-tick output of one detector. Produced fresh each
// tick and never mutated after creation.
type AnomalyReport struct {
	Timestamp time.Time `json:"ts"`
	Detector  string    `json:"detector"` // "oad" or "vad"
	Level     Severity  `json:"level"`
	Score     float64   `json:"score"`

	// Triggers carries the robust z-scores and ratio values that were
	// evaluated, keyed by feature name, for explainability.
	Triggers map[string]float64 `json:"triggers"`

	// Subtypes lists the anomaly subtypes that fired at WARN or above.
	Subtypes []string `json:"subtypes,omitempty"`

	// Insufficient marks the degraded-confidence state: the rolling windows
	// do not yet hold the minimum sample count, so Level OK must not be read
	// as true calm.
	Insufficient bool `json:"insufficient,omitempty"`

	// Liquidity is only set by the order-book detector.
	Liquidity LiquidityState `json:"liquidity,omitempty"`
}

// StressIndex is the composite market-stress level aggregated from the
// detector reports. The level is never milder than its most severe input.
type StressIndex struct {
	Timestamp    time.Time `json:"ts"`
	Level        Severity  `json:"level"`
	Score        float64   `json:"score"`
	Contributors []string  `json:"contributors,omitempty"`
	Insufficient bool      `json:"insufficient,omitempty"`
}
