package analytics

import (
	"math"

	"ToxicTide/internal/domain/models"
	"ToxicTide/internal/rolling"
	"ToxicTide/pkg/logger"
)

// VADConfig holds thresholds for the volume anomaly detector.
type VADConfig struct {
	WindowSize int
	MinSamples int
	ZWarn      float64
	ZDanger    float64
	// Toxic-flow ratio thresholds, orthogonal to the z-score path.
	ToxicWarn   float64
	ToxicDanger float64
}

// VolumeDetector watches traded volume, trade rate and single-print size
// for bursts, droughts and whale activity, and grades the toxic-flow ratio
// against its own WARN/DANGER bands.
type VolumeDetector struct {
	cfg VADConfig
	log *logger.Logger

	logVol    *rolling.Window
	tradeRate *rolling.Window
	maxTrade  *rolling.Window
}

func NewVolumeDetector(cfg VADConfig, log *logger.Logger) *VolumeDetector {
	return &VolumeDetector{
		cfg:       cfg,
		log:       log,
		logVol:    rolling.New(cfg.WindowSize, cfg.MinSamples),
		tradeRate: rolling.New(cfg.WindowSize, cfg.MinSamples),
		maxTrade:  rolling.New(cfg.WindowSize, cfg.MinSamples),
	}
}

func (d *VolumeDetector) Detect(fv models.FeatureVector) models.AnomalyReport {
	// Volume is heavy-tailed; log1p tames it before z-scoring.
	logVol := math.Log1p(fv.Volume)

	d.logVol.Push(logVol)
	d.tradeRate.Push(float64(fv.Trades))
	d.maxTrade.Push(fv.MaxTrade)

	report := models.AnomalyReport{
		Timestamp: fv.Timestamp,
		Detector:  models.DetectorVolume,
		Level:     models.SeverityOK,
		Triggers:  map[string]float64{},
	}

	volZ, ok1 := d.logVol.Zscore(logVol)
	tradesZ, ok2 := d.tradeRate.Zscore(float64(fv.Trades))
	maxTradeZ, ok3 := d.maxTrade.Zscore(fv.MaxTrade)

	if !(ok1 && ok2 && ok3) {
		report.Insufficient = true
		report.Triggers["toxic"] = fv.Toxic
		return report
	}

	report.Triggers["vol_z"] = volZ
	report.Triggers["trades_z"] = tradesZ
	report.Triggers["max_trade_z"] = maxTradeZ
	report.Triggers["signed_imb"] = fv.SignedImb
	report.Triggers["toxic"] = fv.Toxic

	levels := []models.Severity{
		classifyZ(volZ, d.cfg.ZWarn, d.cfg.ZDanger),
		classifyZ(tradesZ, d.cfg.ZWarn, d.cfg.ZDanger),
		classifyZ(maxTradeZ, d.cfg.ZWarn, d.cfg.ZDanger),
	}

	if volZ >= d.cfg.ZWarn {
		report.Subtypes = append(report.Subtypes, models.AnomalyVolumeBurst)
	}
	if fv.Volume < 0.01 || volZ <= -d.cfg.ZWarn {
		report.Subtypes = append(report.Subtypes, models.AnomalyVolumeDrought)
	}
	if tradesZ >= d.cfg.ZWarn {
		report.Subtypes = append(report.Subtypes, models.AnomalyTradeRateSpike)
	}
	if maxTradeZ >= d.cfg.ZWarn {
		report.Subtypes = append(report.Subtypes, models.AnomalyWhaleTrade)
	}

	switch {
	case fv.Toxic >= d.cfg.ToxicDanger:
		report.Subtypes = append(report.Subtypes, models.AnomalyToxicFlow)
		levels = append(levels, models.SeverityDanger)
	case fv.Toxic >= d.cfg.ToxicWarn:
		report.Subtypes = append(report.Subtypes, models.AnomalyToxicFlow)
		levels = append(levels, models.SeverityWarn)
	}

	report.Level = models.MaxSeverity(levels...)
	report.Score = 0.5*volZ + 0.3*maxTradeZ + 10*fv.Toxic

	if report.Level != models.SeverityOK {
		d.log.Warn("volume anomaly",
			logger.String("level", string(report.Level)),
			logger.Float64("score", report.Score),
			logger.Strings("subtypes", report.Subtypes),
		)
	}
	return report
}

// Reset clears all rolling state. Session start only.
func (d *VolumeDetector) Reset() {
	d.logVol.Reset()
	d.tradeRate.Reset()
	d.maxTrade.Reset()
}
