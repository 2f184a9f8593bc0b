package regime

import (
	"math"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

// Config holds the threshold bands for the three regime axes.
type Config struct {
	// ShortWindow and LongWindow are the moving-average lengths for the
	// trend axis, in ticks.
	ShortWindow int
	LongWindow  int
	// TrendBandPct is the dead band around the long MA, in percent.
	TrendBandPct float64
	// VolCalm and VolExtreme are annualized realized-volatility bounds.
	VolCalm    float64
	VolExtreme float64
	// FlowBand is the signed-imbalance magnitude separating BALANCED
	// from BUY_HEAVY/SELL_HEAVY.
	FlowBand float64
}

// Classifier assigns each tick a (trend, volatility, flow) triple. Each
// axis is judged independently against its threshold bands and the triple
// is their direct composition. Transitions are immediate; consumers apply
// their own stability logic.
type Classifier struct {
	cfg Config
	log *logger.Logger

	prices []float64
}

func NewClassifier(cfg Config, log *logger.Logger) *Classifier {
	if cfg.ShortWindow <= 0 {
		cfg.ShortWindow = 10
	}
	if cfg.LongWindow <= cfg.ShortWindow {
		cfg.LongWindow = cfg.ShortWindow * 3
	}
	return &Classifier{cfg: cfg, log: log}
}

func (c *Classifier) Classify(fv models.FeatureVector) models.RegimeState {
	c.prices = append(c.prices, fv.Mid)
	if max := c.cfg.LongWindow * 3; len(c.prices) > max {
		c.prices = c.prices[len(c.prices)-max:]
	}

	state := models.RegimeState{
		Timestamp:  fv.Timestamp,
		Trend:      c.trendAxis(),
		Vol:        c.volAxis(),
		Flow:       c.flowAxis(fv),
		Confidence: c.confidence(),
	}

	c.log.Debug("regime",
		logger.String("trend", string(state.Trend)),
		logger.String("vol", string(state.Vol)),
		logger.String("flow", string(state.Flow)),
	)
	return state
}

// Reset clears the trailing price window. Session start only.
func (c *Classifier) Reset() { c.prices = c.prices[:0] }

func (c *Classifier) trendAxis() models.TrendRegime {
	if len(c.prices) < c.cfg.LongWindow {
		return models.TrendRange
	}
	maShort := mean(tail(c.prices, c.cfg.ShortWindow))
	maLong := mean(tail(c.prices, c.cfg.LongWindow))
	band := c.cfg.TrendBandPct / 100
	switch {
	case maShort > maLong*(1+band):
		return models.TrendUp
	case maShort < maLong*(1-band):
		return models.TrendDown
	default:
		return models.TrendRange
	}
}

func (c *Classifier) volAxis() models.VolRegime {
	if len(c.prices) < c.cfg.LongWindow {
		return models.VolElevated
	}
	prices := tail(c.prices, c.cfg.LongWindow)
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 {
			returns = append(returns, prices[i]/prices[i-1]-1)
		}
	}
	if len(returns) < 2 {
		return models.VolElevated
	}
	// Ticks are one second apart, so annualization uses seconds per year.
	realized := stddev(returns) * math.Sqrt(252*24*3600)
	switch {
	case realized > c.cfg.VolExtreme:
		return models.VolExtreme
	case realized < c.cfg.VolCalm:
		return models.VolCalm
	default:
		return models.VolElevated
	}
}

func (c *Classifier) flowAxis(fv models.FeatureVector) models.FlowRegime {
	switch {
	case fv.SignedImb > c.cfg.FlowBand:
		return models.FlowBuyHeavy
	case fv.SignedImb < -c.cfg.FlowBand:
		return models.FlowSellHeavy
	default:
		return models.FlowBalanced
	}
}

func (c *Classifier) confidence() float64 {
	switch {
	case len(c.prices) >= c.cfg.LongWindow+c.cfg.ShortWindow:
		return 0.8
	case len(c.prices) >= c.cfg.LongWindow:
		return 0.6
	default:
		return 0.4
	}
}

func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
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

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum2 float64
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(len(xs)))
}
