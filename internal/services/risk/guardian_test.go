package risk

import (
	"math"
	"strings"
	"testing"
	"time"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

func testConfig() Config {
	return Config{
		MaxDailyLossPct:        1.0,
		MaxPositionNotionalUSD: 3000,
		MaxTradesPerHour:       6,
		ImpactEntryCapBps:      10,
		ImpactHardCapBps:       20,
		StalenessThreshold:     10 * time.Second,
		LossStreakLimit:        3,
		CooldownDuration:       5 * time.Minute,
		StressWarnFraction:     0.5,
		MaxSlippageCapBps:      15,
		ToxicWarn:              0.6,
		ToxicDanger:            0.75,
	}
}

var tickTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func freshFeatures() models.FeatureVector {
	return models.FeatureVector{
		Timestamp: tickTime,
		Mid:       2000,
		Spread:    0.4,
		SpreadBps: 2,
		Toxic:     0.1,
	}
}

func testIntent() *models.TradeIntent {
	return &models.TradeIntent{
		Timestamp:   tickTime,
		Direction:   models.DirectionLong,
		NotionalUSD: 1000,
		Strategy:    "trend_breakout",
		EntryPrice:  2000,
	}
}

func flatImpact(bps float64) ImpactFn {
	return func(models.Direction, float64) float64 { return bps }
}

// linearImpact scales impact proportionally with notional, anchored at
// refBps for refNotional.
func linearImpact(refBps, refNotional float64) ImpactFn {
	return func(_ models.Direction, notional float64) float64 {
		return refBps * notional / refNotional
	}
}

func hasCode(reasons []models.Reason, code string) bool {
	for _, r := range reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

func TestAllowCleanIntent(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	d := g.Assess(tickTime, testIntent(), freshFeatures(),
		models.StressIndex{Level: models.SeverityOK},
		models.AccountState{BalanceUSD: 10000}, flatImpact(2))

	if d.Outcome != models.OutcomeAllow {
		t.Fatalf("outcome = %v, want ALLOW (reasons %v)", d.Outcome, d.Reasons)
	}
	if d.AdjustedNotionalUSD != 1000 {
		t.Errorf("adjusted = %v, want 1000", d.AdjustedNotionalUSD)
	}
	// All seven checks report, even when they all pass.
	if len(d.Reasons) != 7 {
		t.Errorf("reasons = %d, want 7 (one per check): %v", len(d.Reasons), d.Reasons)
	}
	if d.MaxSlippageBps != 3 {
		t.Errorf("max slippage = %v, want 3 (impact 2 * 1.5)", d.MaxSlippageBps)
	}
}

func TestNilIntentDenied(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	d := g.Assess(tickTime, nil, freshFeatures(),
		models.StressIndex{Level: models.SeverityOK},
		models.AccountState{BalanceUSD: 10000}, flatImpact(2))
	if d.Outcome != models.OutcomeDeny || !hasCode(d.Reasons, CodeNoSignal) {
		t.Fatalf("decision = %+v, want DENY with NO_SIGNAL", d)
	}
}

func TestStaleDataDenied(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	fv := freshFeatures()
	fv.Timestamp = tickTime.Add(-11 * time.Second)
	d := g.Assess(tickTime, testIntent(), fv,
		models.StressIndex{Level: models.SeverityOK},
		models.AccountState{BalanceUSD: 10000}, flatImpact(2))
	if d.Outcome != models.OutcomeDeny || !hasCode(d.Reasons, CodeDataStale) {
		t.Fatalf("decision = %+v, want DENY with DATA_STALE", d)
	}
}

func TestInconsistentBookDenied(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	fv := freshFeatures()
	fv.Spread = -0.1
	d := g.Assess(tickTime, testIntent(), fv,
		models.StressIndex{Level: models.SeverityOK},
		models.AccountState{BalanceUSD: 10000}, flatImpact(2))
	if d.Outcome != models.OutcomeDeny || !hasCode(d.Reasons, CodeDataInconsistent) {
		t.Fatalf("decision = %+v, want DENY with DATA_INCONSISTENT", d)
	}
}

// Daily P&L of -1.5% against a -1.0% floor denies with the percentages in
// the reason text.
func TestDailyLossCircuitBreaker(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	g.RecordTrade(tickTime.Add(-time.Hour), -150) // -1.5% of 10k

	d := g.Assess(tickTime, testIntent(), freshFeatures(),
		models.StressIndex{Level: models.SeverityOK},
		models.AccountState{BalanceUSD: 10000}, flatImpact(2))
	if d.Outcome != models.OutcomeDeny {
		t.Fatalf("outcome = %v, want DENY", d.Outcome)
	}
	r, ok := d.BlockingReason()
	if !ok || r.Code != CodeDailyLossExceeded {
		t.Fatalf("blocking reason = %+v, want DAILY_LOSS_EXCEEDED", r)
	}
	if !strings.Contains(r.Message, "-1.50%") || !strings.Contains(r.Message, "-1.00%") {
		t.Errorf("message %q missing loss and floor percentages", r.Message)
	}
}

// A DENY from a higher-priority check suppresses lower-priority effects:
// with both the daily-loss breaker and an entry-cap impact breach active,
// the outcome is check 2's DENY, never ALLOW_WITH_REDUCTIONS.
func TestCheckOrderShortCircuit(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	g.RecordTrade(tickTime.Add(-time.Hour), -150)

	d := g.Assess(tickTime, testIntent(), freshFeatures(),
		models.StressIndex{Level: models.SeverityOK},
		models.AccountState{BalanceUSD: 10000}, flatImpact(12))
	if d.Outcome != models.OutcomeDeny {
		t.Fatalf("outcome = %v, want DENY from the higher-priority check", d.Outcome)
	}
	if !hasCode(d.Reasons, CodeDailyLossExceeded) {
		t.Error("daily-loss reason missing")
	}
	if hasCode(d.Reasons, CodeImpactEntryCapExceeded) {
		t.Error("short-circuited impact check still contributed a reduction reason")
	}
	if d.AdjustedNotionalUSD != 0 {
		t.Errorf("adjusted = %v, want 0 on DENY", d.AdjustedNotionalUSD)
	}
}

func TestCooldownDenies(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	// Three consecutive losses arm the cooldown.
	for i := 0; i < 3; i++ {
		g.RecordTrade(tickTime.Add(time.Duration(i-4)*time.Minute), -10)
	}
	if g.CooldownUntil().IsZero() {
		t.Fatal("cooldown not armed after loss streak")
	}

	d := g.Assess(tickTime, testIntent(), freshFeatures(),
		models.StressIndex{Level: models.SeverityOK},
		models.AccountState{BalanceUSD: 100000}, flatImpact(2))
	if d.Outcome != models.OutcomeDeny || !hasCode(d.Reasons, CodeCooldownActive) {
		t.Fatalf("decision = %+v, want DENY with COOLDOWN_ACTIVE", d)
	}
	if d.Facts["cooldown_remaining_sec"] <= 0 {
		t.Error("cooldown remaining seconds not reported")
	}
}

func TestWinResetsLossStreak(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	g.RecordTrade(tickTime.Add(-4*time.Minute), -10)
	g.RecordTrade(tickTime.Add(-3*time.Minute), -10)
	g.RecordTrade(tickTime.Add(-2*time.Minute), 5)
	g.RecordTrade(tickTime.Add(-1*time.Minute), -10)
	if !g.CooldownUntil().IsZero() {
		t.Fatal("cooldown armed despite win breaking the streak")
	}
}

func TestPositionCapDenies(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	d := g.Assess(tickTime, testIntent(), freshFeatures(),
		models.StressIndex{Level: models.SeverityOK},
		models.AccountState{BalanceUSD: 100000, PositionNotionalUSD: 2500}, flatImpact(2))
	if d.Outcome != models.OutcomeDeny || !hasCode(d.Reasons, CodePositionLimitExceeded) {
		t.Fatalf("decision = %+v, want DENY with POSITION_LIMIT_EXCEEDED", d)
	}
}

func TestImpactHardCapDenies(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	d := g.Assess(tickTime, testIntent(), freshFeatures(),
		models.StressIndex{Level: models.SeverityOK},
		models.AccountState{BalanceUSD: 10000}, flatImpact(25))
	if d.Outcome != models.OutcomeDeny || !hasCode(d.Reasons, CodeImpactHardCapExceeded) {
		t.Fatalf("decision = %+v, want DENY with IMPACT_HARD_CAP_EXCEEDED", d)
	}
}

// Intent of $1,000 at 12 bps against a 10 bps entry cap reduces until the
// estimated impact sits at or under the cap.
func TestImpactEntryCapReduces(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	impactFn := linearImpact(12, 1000)
	d := g.Assess(tickTime, testIntent(), freshFeatures(),
		models.StressIndex{Level: models.SeverityOK},
		models.AccountState{BalanceUSD: 10000}, impactFn)

	if d.Outcome != models.OutcomeReductions {
		t.Fatalf("outcome = %v, want ALLOW_WITH_REDUCTIONS", d.Outcome)
	}
	if d.AdjustedNotionalUSD >= 1000 || d.AdjustedNotionalUSD <= 0 {
		t.Fatalf("adjusted = %v, want in (0, 1000)", d.AdjustedNotionalUSD)
	}
	if got := impactFn(models.DirectionLong, d.AdjustedNotionalUSD); got > 10+1e-6 {
		t.Errorf("impact at adjusted notional = %v, want <= entry cap 10", got)
	}
	var reduced models.Reason
	for _, r := range d.Reasons {
		if r.Code == CodeImpactEntryCapExceeded {
			reduced = r
		}
	}
	if !strings.Contains(reduced.Message, "impact 12.00 bps > cap 10.00 bps, reduced") {
		t.Errorf("reason message %q missing the cap citation", reduced.Message)
	}
}

func TestToxicDangerDenies(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	fv := freshFeatures()
	fv.Toxic = 0.8
	d := g.Assess(tickTime, testIntent(), fv,
		models.StressIndex{Level: models.SeverityOK},
		models.AccountState{BalanceUSD: 10000}, flatImpact(2))
	if d.Outcome != models.OutcomeDeny || !hasCode(d.Reasons, CodeToxicDanger) {
		t.Fatalf("decision = %+v, want DENY with TOXIC_DANGER_LEVEL", d)
	}
}

func TestToxicWarnReduces(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	fv := freshFeatures()
	fv.Toxic = 0.65
	d := g.Assess(tickTime, testIntent(), fv,
		models.StressIndex{Level: models.SeverityOK},
		models.AccountState{BalanceUSD: 10000}, flatImpact(2))
	if d.Outcome != models.OutcomeReductions {
		t.Fatalf("outcome = %v, want ALLOW_WITH_REDUCTIONS", d.Outcome)
	}
	if math.Abs(d.AdjustedNotionalUSD-700) > 1e-9 {
		t.Errorf("adjusted = %v, want 700 (0.7 multiplier)", d.AdjustedNotionalUSD)
	}
}

func TestStressDangerDenies(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	d := g.Assess(tickTime, testIntent(), freshFeatures(),
		models.StressIndex{Level: models.SeverityDanger},
		models.AccountState{BalanceUSD: 10000}, flatImpact(2))
	if d.Outcome != models.OutcomeDeny || !hasCode(d.Reasons, CodeMarketStressDanger) {
		t.Fatalf("decision = %+v, want DENY with MARKET_STRESS_DANGER", d)
	}
}

// Reductions from checks 5 and 6 compose multiplicatively in check order.
func TestReductionsComposeMultiplicatively(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	fv := freshFeatures()
	fv.Toxic = 0.65
	d := g.Assess(tickTime, testIntent(), fv,
		models.StressIndex{Level: models.SeverityWarn},
		models.AccountState{BalanceUSD: 10000}, flatImpact(2))
	if d.Outcome != models.OutcomeReductions {
		t.Fatalf("outcome = %v, want ALLOW_WITH_REDUCTIONS", d.Outcome)
	}
	want := 1000 * 0.7 * 0.5
	if math.Abs(d.AdjustedNotionalUSD-want) > 1e-9 {
		t.Errorf("adjusted = %v, want %v (toxic 0.7 then stress 0.5)", d.AdjustedNotionalUSD, want)
	}
	if !hasCode(d.Reasons, CodePositionSizeReduced) {
		t.Error("summary reduction reason missing")
	}
}

func TestTradeFrequencyLimit(t *testing.T) {
	g := NewGuardian(testConfig(), logger.Nop())
	for i := 0; i < 6; i++ {
		g.RecordTrade(tickTime.Add(time.Duration(-i*5)*time.Minute), 1)
	}
	d := g.Assess(tickTime, testIntent(), freshFeatures(),
		models.StressIndex{Level: models.SeverityOK},
		models.AccountState{BalanceUSD: 10000}, flatImpact(2))
	if d.Outcome != models.OutcomeDeny || !hasCode(d.Reasons, CodeTradeFrequencyExceeded) {
		t.Fatalf("decision = %+v, want DENY with TRADE_FREQUENCY_EXCEEDED", d)
	}
}

func TestDayRolloverResetsDailyPnL(t *testing.T) {
	tt := NewTiltTracker(logger.Nop())
	day1 := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	tt.RecordTrade(day1, -500)
	if tt.DailyPnL() != -500 {
		t.Fatalf("daily pnl = %v, want -500", tt.DailyPnL())
	}
	day2 := time.Date(2025, 6, 2, 0, 30, 0, 0, time.UTC)
	tt.RecordTrade(day2, -10)
	if tt.DailyPnL() != -10 {
		t.Fatalf("daily pnl after rollover = %v, want -10", tt.DailyPnL())
	}
	// The frequency window still sees both trades.
	if got := tt.TradesLastHour(day2.Add(time.Minute)); got != 1 {
		t.Errorf("trades last hour = %d, want 1", got)
	}
}
