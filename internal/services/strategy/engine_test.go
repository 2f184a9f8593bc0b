package strategy

import (
	"testing"
	"time"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

func testConfig() Config {
	cfg := Config{
		Enabled:         []string{TrendBreakout, RangeMeanRevert},
		BaseNotionalUSD: 1000,
	}
	cfg.Breakout.Lookback = 20
	cfg.Breakout.BreakoutPct = 0.1
	cfg.Breakout.StopPct = 0.5
	cfg.Breakout.TakeProfitPct = 1.0
	cfg.Breakout.Confidence = 0.7
	cfg.Breakout.TTL = 5 * time.Minute
	cfg.MeanRevert.Lookback = 30
	cfg.MeanRevert.EntrySigma = 1.5
	cfg.MeanRevert.StopPct = 0.2
	cfg.MeanRevert.Confidence = 0.6
	cfg.MeanRevert.TTL = 10 * time.Minute
	return cfg
}

func tick(e *Engine, mid float64, regime models.RegimeState, stress models.StressIndex) *models.TradeIntent {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return e.Generate(models.FeatureVector{Timestamp: ts, Mid: mid}, regime, stress)
}

func warmup(e *Engine, prices []float64) {
	regime := models.RegimeState{Trend: models.TrendRange, Vol: models.VolElevated, Flow: models.FlowBalanced}
	for _, p := range prices {
		tick(e, p, regime, models.StressIndex{Level: models.SeverityOK})
	}
}

func TestBreakoutLong(t *testing.T) {
	e := NewEngine(testConfig(), logger.Nop())
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 2000 + float64(i%5)
	}
	warmup(e, prices)

	regime := models.RegimeState{Trend: models.TrendUp, Vol: models.VolElevated, Flow: models.FlowBuyHeavy}
	intent := tick(e, 2010, regime, models.StressIndex{Level: models.SeverityOK})
	if intent == nil {
		t.Fatal("expected breakout intent")
	}
	if intent.Strategy != TrendBreakout || intent.Direction != models.DirectionLong {
		t.Fatalf("got %s/%s, want trend_breakout/long", intent.Strategy, intent.Direction)
	}
	if intent.NotionalUSD != 1000 {
		t.Errorf("notional = %v, want base 1000", intent.NotionalUSD)
	}
	if intent.StopPrice >= intent.EntryPrice || intent.TakeProfit <= intent.EntryPrice {
		t.Errorf("long stop/tp ordering wrong: stop %v entry %v tp %v",
			intent.StopPrice, intent.EntryPrice, intent.TakeProfit)
	}
}

func TestIntentCarriesContext(t *testing.T) {
	e := NewEngine(testConfig(), logger.Nop())
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 2000 + float64(i%5)
	}
	warmup(e, prices)

	regime := models.RegimeState{Trend: models.TrendUp, Vol: models.VolElevated, Flow: models.FlowBuyHeavy}
	stress := models.StressIndex{Level: models.SeverityWarn}
	intent := tick(e, 2010, regime, stress)
	if intent == nil {
		t.Fatal("expected breakout intent")
	}
	if intent.Regime != regime {
		t.Errorf("regime = %+v, want %+v", intent.Regime, regime)
	}
	if intent.Stress != models.SeverityWarn {
		t.Errorf("stress = %v, want WARN", intent.Stress)
	}
}

func TestBreakoutRequiresTrend(t *testing.T) {
	e := NewEngine(testConfig(), logger.Nop())
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 2000 + float64(i%5)
	}
	warmup(e, prices)

	regime := models.RegimeState{Trend: models.TrendRange, Vol: models.VolElevated, Flow: models.FlowBalanced}
	if intent := tick(e, 2010, regime, models.StressIndex{Level: models.SeverityOK}); intent != nil {
		t.Fatalf("unexpected intent in RANGE regime: %+v", intent)
	}
}

func TestMeanRevertShort(t *testing.T) {
	e := NewEngine(testConfig(), logger.Nop())
	prices := make([]float64, 30)
	for i := range prices {
		if i%2 == 0 {
			prices[i] = 1999
		} else {
			prices[i] = 2001
		}
	}
	warmup(e, prices)

	regime := models.RegimeState{Trend: models.TrendRange, Vol: models.VolCalm, Flow: models.FlowBalanced}
	intent := tick(e, 2008, regime, models.StressIndex{Level: models.SeverityOK})
	if intent == nil {
		t.Fatal("expected mean-revert intent")
	}
	if intent.Strategy != RangeMeanRevert || intent.Direction != models.DirectionShort {
		t.Fatalf("got %s/%s, want range_mean_revert/short", intent.Strategy, intent.Direction)
	}
}

func TestDangerStressGatesAllStrategies(t *testing.T) {
	e := NewEngine(testConfig(), logger.Nop())
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 2000 + float64(i%5)
	}
	warmup(e, prices)

	regime := models.RegimeState{Trend: models.TrendUp, Vol: models.VolElevated, Flow: models.FlowBuyHeavy}
	if intent := tick(e, 2010, regime, models.StressIndex{Level: models.SeverityDanger}); intent != nil {
		t.Fatalf("DANGER stress produced an intent: %+v", intent)
	}
}

func TestPriorityOrderFirstMatchWins(t *testing.T) {
	// Mean revert listed first: in a context where both could fire, the
	// configured priority decides.
	cfg := testConfig()
	cfg.Enabled = []string{RangeMeanRevert, TrendBreakout}
	e := NewEngine(cfg, logger.Nop())
	prices := make([]float64, 30)
	for i := range prices {
		if i%2 == 0 {
			prices[i] = 1999
		} else {
			prices[i] = 2001
		}
	}
	warmup(e, prices)

	regime := models.RegimeState{Trend: models.TrendRange, Vol: models.VolCalm, Flow: models.FlowBalanced}
	intent := tick(e, 2008, regime, models.StressIndex{Level: models.SeverityOK})
	if intent == nil || intent.Strategy != RangeMeanRevert {
		t.Fatalf("intent = %+v, want range_mean_revert first", intent)
	}
}
