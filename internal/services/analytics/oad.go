package analytics

import (
	"math"

	"ToxicTide/internal/domain/models"
	"ToxicTide/internal/rolling"
	"ToxicTide/pkg/logger"
)

// OADConfig holds thresholds for the orderbook anomaly detector.
type OADConfig struct {
	WindowSize int
	MinSamples int
	// |z| thresholds, ZDanger strictly above ZWarn.
	ZWarn   float64
	ZDanger float64
	// SpreadGrowthRatio flags a spread this many times the rolling median.
	SpreadGrowthRatio float64
	// LiquidityGapFrac flags depth below this fraction of the rolling median.
	LiquidityGapFrac float64
	// Liquidity state bands over absolute impact and toxic ratio.
	ThinImpactBps    float64
	ToxicImpactBps   float64
	ToxicDangerRatio float64
}

// OrderbookDetector watches spread, impact, message rate and depth for
// abnormal readings. Each monitored feature has its own rolling window;
// severity is the worst classification across all sub-checks, continuous
// z-scores and discrete flags alike.
type OrderbookDetector struct {
	cfg OADConfig
	log *logger.Logger

	spread    *rolling.Window
	impactBuy *rolling.Window
	impactSel *rolling.Window
	msgRate   *rolling.Window
	depthBid  *rolling.Window
	depthAsk  *rolling.Window
}

func NewOrderbookDetector(cfg OADConfig, log *logger.Logger) *OrderbookDetector {
	return &OrderbookDetector{
		cfg:       cfg,
		log:       log,
		spread:    rolling.New(cfg.WindowSize, cfg.MinSamples),
		impactBuy: rolling.New(cfg.WindowSize, cfg.MinSamples),
		impactSel: rolling.New(cfg.WindowSize, cfg.MinSamples),
		msgRate:   rolling.New(cfg.WindowSize, cfg.MinSamples),
		// Depth baselines stabilize over a longer horizon than the
		// z-scored features.
		depthBid: rolling.New(cfg.WindowSize*4, cfg.MinSamples),
		depthAsk: rolling.New(cfg.WindowSize*4, cfg.MinSamples),
	}
}

func (d *OrderbookDetector) Detect(fv models.FeatureVector) models.AnomalyReport {
	spreadMedian := d.spread.Median()

	d.spread.Push(fv.SpreadBps)
	d.impactBuy.Push(fv.ImpactBuyBps)
	d.impactSel.Push(fv.ImpactSellBps)
	d.msgRate.Push(fv.MsgRate)
	d.depthBid.Push(fv.DepthBidUSD)
	d.depthAsk.Push(fv.DepthAskUSD)

	report := models.AnomalyReport{
		Timestamp: fv.Timestamp,
		Detector:  models.DetectorOrderbook,
		Level:     models.SeverityOK,
		Triggers:  map[string]float64{},
		Liquidity: d.liquidityState(fv),
	}

	spreadZ, ok1 := d.spread.Zscore(fv.SpreadBps)
	impactBuyZ, ok2 := d.impactBuy.Zscore(fv.ImpactBuyBps)
	impactSellZ, ok3 := d.impactSel.Zscore(fv.ImpactSellBps)
	msgRateZ, ok4 := d.msgRate.Zscore(fv.MsgRate)

	if !(ok1 && ok2 && ok3 && ok4) {
		report.Insufficient = true
		return report
	}

	impactZ := math.Max(impactBuyZ, impactSellZ)

	report.Triggers["spread_z"] = spreadZ
	report.Triggers["impact_buy_z"] = impactBuyZ
	report.Triggers["impact_sell_z"] = impactSellZ
	report.Triggers["msg_rate_z"] = msgRateZ

	levels := []models.Severity{
		d.classify(spreadZ, models.AnomalySpreadBlowout, &report),
		d.classify(impactZ, models.AnomalyImpactSpike, &report),
		d.classify(msgRateZ, models.AnomalyMsgRateSpike, &report),
	}

	// Spread growth is a discrete check against the window median,
	// catching slow blowouts that robust z-scores absorb.
	if spreadMedian > 0 && fv.SpreadBps > d.cfg.SpreadGrowthRatio*spreadMedian {
		report.Triggers["spread_growth_ratio"] = fv.SpreadBps / spreadMedian
		report.Subtypes = append(report.Subtypes, models.AnomalySpreadGrowth)
		levels = append(levels, models.SeverityWarn)
	}

	if gap := d.liquidityGap(fv, &report); gap {
		report.Subtypes = append(report.Subtypes, models.AnomalyLiquidityGap)
		levels = append(levels, models.SeverityDanger)
	}

	report.Level = models.MaxSeverity(levels...)
	report.Score = 0.3*spreadZ + 0.4*impactZ + 0.2*msgRateZ
	if hasSubtype(report.Subtypes, models.AnomalyLiquidityGap) {
		report.Score += 10
	}

	if report.Level != models.SeverityOK {
		d.log.Warn("orderbook anomaly",
			logger.String("level", string(report.Level)),
			logger.Float64("score", report.Score),
			logger.Strings("subtypes", report.Subtypes),
		)
	}
	return report
}

// Reset clears all rolling state. Session start only.
func (d *OrderbookDetector) Reset() {
	d.spread.Reset()
	d.impactBuy.Reset()
	d.impactSel.Reset()
	d.msgRate.Reset()
	d.depthBid.Reset()
	d.depthAsk.Reset()
}

func (d *OrderbookDetector) classify(z float64, subtype string, report *models.AnomalyReport) models.Severity {
	level := classifyZ(z, d.cfg.ZWarn, d.cfg.ZDanger)
	if level != models.SeverityOK {
		report.Subtypes = append(report.Subtypes, subtype)
	}
	return level
}

func (d *OrderbookDetector) liquidityGap(fv models.FeatureVector, report *models.AnomalyReport) bool {
	gap := false
	if med := d.depthBid.Median(); med > 0 && fv.DepthBidUSD < d.cfg.LiquidityGapFrac*med {
		report.Triggers["depth_bid_vs_median"] = fv.DepthBidUSD / med
		gap = true
	}
	if med := d.depthAsk.Median(); med > 0 && fv.DepthAskUSD < d.cfg.LiquidityGapFrac*med {
		report.Triggers["depth_ask_vs_median"] = fv.DepthAskUSD / med
		gap = true
	}
	return gap
}

func (d *OrderbookDetector) liquidityState(fv models.FeatureVector) models.LiquidityState {
	maxImpact := fv.WorstImpactBps()
	switch {
	case maxImpact > d.cfg.ToxicImpactBps || fv.Toxic > d.cfg.ToxicDangerRatio:
		return models.LiquidityToxic
	case maxImpact > d.cfg.ThinImpactBps:
		return models.LiquidityThin
	default:
		return models.LiquidityThick
	}
}

func classifyZ(z, warn, danger float64) models.Severity {
	abs := math.Abs(z)
	switch {
	case abs >= danger:
		return models.SeverityDanger
	case abs >= warn:
		return models.SeverityWarn
	default:
		return models.SeverityOK
	}
}

func hasSubtype(subtypes []string, s string) bool {
	for _, st := range subtypes {
		if st == s {
			return true
		}
	}
	return false
}
