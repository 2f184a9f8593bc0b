package strategy

import (
	"math"
	"time"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

// Strategy tags. The engine knows this closed set; unknown names in the
// enabled list are ignored at construction.
const (
	TrendBreakout   = "trend_breakout"
	RangeMeanRevert = "range_mean_revert"
)

// Config holds strategy parameters and the priority-ordered enable list.
type Config struct {
	// Enabled lists strategies in evaluation priority order.
	Enabled []string
	// BaseNotionalUSD is the notional proposed with every intent. The risk
	// layer may reduce it; the engine never sizes positions itself.
	BaseNotionalUSD float64

	Breakout struct {
		Lookback      int
		BreakoutPct   float64
		StopPct       float64
		TakeProfitPct float64
		Confidence    float64
		TTL           time.Duration
	}
	MeanRevert struct {
		Lookback   int
		EntrySigma float64
		StopPct    float64
		Confidence float64
		TTL        time.Duration
	}
}

// strategyFunc is one variant of the closed strategy set: a pure function
// of the current market context returning an intent or nil.
type strategyFunc func(fv models.FeatureVector, regime models.RegimeState, stress models.StressIndex) *models.TradeIntent

// Engine turns regime and stress context into at most one TradeIntent per
// tick. Strategies are tried in the configured priority order and the
// first match wins. A DANGER stress level is a hard gate: stressed markets
// never generate new intents regardless of strategy eligibility.
type Engine struct {
	cfg    Config
	log    *logger.Logger
	chain  []strategyFunc
	prices []float64
}

func NewEngine(cfg Config, log *logger.Logger) *Engine {
	e := &Engine{cfg: cfg, log: log}
	for _, name := range cfg.Enabled {
		switch name {
		case TrendBreakout:
			e.chain = append(e.chain, e.trendBreakout)
		case RangeMeanRevert:
			e.chain = append(e.chain, e.rangeMeanRevert)
		default:
			log.Warn("unknown strategy ignored", logger.String("strategy", name))
		}
	}
	return e
}

// Generate evaluates the strategy chain against the price history built
// from previous ticks, then records the tick's mid price. The current mid
// stays out of the lookback window so a breakout is judged against prior
// samples only. Returns nil when no enabled strategy matches.
func (e *Engine) Generate(fv models.FeatureVector, regime models.RegimeState, stress models.StressIndex) *models.TradeIntent {
	defer func() {
		e.prices = append(e.prices, fv.Mid)
		if len(e.prices) > 100 {
			e.prices = e.prices[len(e.prices)-100:]
		}
	}()

	if stress.Level == models.SeverityDanger {
		e.log.Debug("no signal, market stressed", logger.Time("ts", fv.Timestamp))
		return nil
	}
	if len(e.prices) < 5 || fv.Mid <= 0 {
		return nil
	}

	for _, strat := range e.chain {
		if intent := strat(fv, regime, stress); intent != nil {
			e.log.Info("signal generated",
				logger.String("strategy", intent.Strategy),
				logger.String("direction", string(intent.Direction)),
				logger.Float64("entry", intent.EntryPrice),
				logger.Float64("notional_usd", intent.NotionalUSD),
			)
			return intent
		}
	}
	return nil
}

// Reset clears the price history. Session start only.
func (e *Engine) Reset() { e.prices = e.prices[:0] }

func (e *Engine) trendBreakout(fv models.FeatureVector, regime models.RegimeState, stress models.StressIndex) *models.TradeIntent {
	if regime.Trend != models.TrendUp && regime.Trend != models.TrendDown {
		return nil
	}

	window := tail(e.prices, e.cfg.Breakout.Lookback)
	if len(window) == 0 {
		return nil
	}
	high, low := window[0], window[0]
	for _, p := range window {
		high = math.Max(high, p)
		low = math.Min(low, p)
	}

	price := fv.Mid
	breakout := e.cfg.Breakout.BreakoutPct / 100
	stop := e.cfg.Breakout.StopPct / 100
	tp := e.cfg.Breakout.TakeProfitPct / 100

	if price > high*(1+breakout) {
		return e.intent(fv, regime, stress, models.TradeIntent{
			Direction:  models.DirectionLong,
			Strategy:   TrendBreakout,
			EntryPrice: price,
			StopPrice:  price * (1 - stop),
			TakeProfit: price * (1 + tp),
			Confidence: e.cfg.Breakout.Confidence,
			TTL:        e.cfg.Breakout.TTL,
		})
	}
	if price < low*(1-breakout) {
		return e.intent(fv, regime, stress, models.TradeIntent{
			Direction:  models.DirectionShort,
			Strategy:   TrendBreakout,
			EntryPrice: price,
			StopPrice:  price * (1 + stop),
			TakeProfit: price * (1 - tp),
			Confidence: e.cfg.Breakout.Confidence,
			TTL:        e.cfg.Breakout.TTL,
		})
	}
	return nil
}

func (e *Engine) rangeMeanRevert(fv models.FeatureVector, regime models.RegimeState, stress models.StressIndex) *models.TradeIntent {
	if regime.Trend != models.TrendRange || regime.Vol != models.VolCalm {
		return nil
	}

	window := tail(e.prices, e.cfg.MeanRevert.Lookback)
	m := mean(window)
	sd := stddev(window, m)
	if sd <= 0 {
		return nil
	}

	price := fv.Mid
	entry := e.cfg.MeanRevert.EntrySigma
	stop := e.cfg.MeanRevert.StopPct / 100

	if price < m-entry*sd {
		return e.intent(fv, regime, stress, models.TradeIntent{
			Direction:  models.DirectionLong,
			Strategy:   RangeMeanRevert,
			EntryPrice: price,
			StopPrice:  price * (1 - stop),
			TakeProfit: m,
			Confidence: e.cfg.MeanRevert.Confidence,
			TTL:        e.cfg.MeanRevert.TTL,
		})
	}
	if price > m+entry*sd {
		return e.intent(fv, regime, stress, models.TradeIntent{
			Direction:  models.DirectionShort,
			Strategy:   RangeMeanRevert,
			EntryPrice: price,
			StopPrice:  price * (1 + stop),
			TakeProfit: m,
			Confidence: e.cfg.MeanRevert.Confidence,
			TTL:        e.cfg.MeanRevert.TTL,
		})
	}
	return nil
}

func (e *Engine) intent(fv models.FeatureVector, regime models.RegimeState, stress models.StressIndex, base models.TradeIntent) *models.TradeIntent {
	base.Timestamp = fv.Timestamp
	base.NotionalUSD = e.cfg.BaseNotionalUSD
	base.Regime = regime
	base.Stress = stress.Level
	return &base
}

func tail(xs []float64, n int) []float64 {
	if n <= 0 || len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum2 float64
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(len(xs)))
}
