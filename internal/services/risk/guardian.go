package risk

import (
	"math"
	"time"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

// Config holds the policy thresholds for the guardian.
type Config struct {
	MaxDailyLossPct        float64
	MaxPositionNotionalUSD float64
	MaxTradesPerHour       int
	ImpactEntryCapBps      float64
	ImpactHardCapBps       float64
	StalenessThreshold     time.Duration
	LossStreakLimit        int
	CooldownDuration       time.Duration
	StressWarnFraction     float64
	MaxSlippageCapBps      float64
	ToxicWarn              float64
	ToxicDanger            float64
}

type namedCheck struct {
	name string
	fn   func(*assessment) checkResult
}

// Guardian evaluates every TradeIntent through a fixed-priority chain of
// checks. The chain folds left to right: a DENY short-circuits the
// remaining checks, reductions compose multiplicatively in the order the
// checks ran, and every evaluated check leaves a reason on the decision.
// The guardian is the only owner of the session-persistent risk state
// (daily P&L, loss streak, trade timestamps, cooldown timer).
type Guardian struct {
	cfg  Config
	log  *logger.Logger
	tilt *TiltTracker

	cooldownUntil time.Time
	checks        []namedCheck
}

func NewGuardian(cfg Config, log *logger.Logger) *Guardian {
	g := &Guardian{
		cfg:  cfg,
		log:  log,
		tilt: NewTiltTracker(log),
	}
	g.checks = []namedCheck{
		{"data_quality", g.checkDataQuality},
		{"daily_loss", g.checkDailyLoss},
		{"cooldown", g.checkCooldown},
		{"position_cap", g.checkPositionCap},
		{"impact_toxicity", g.checkImpactToxicity},
		{"market_stress", g.checkMarketStress},
		{"trade_frequency", g.checkTradeFrequency},
	}
	return g
}

// Assess runs the check chain over an intent. A nil intent yields an
// immediate DENY carrying the no-signal reason so every tick still
// produces an auditable decision. now is the tick clock, which during
// replay comes from recorded timestamps.
func (g *Guardian) Assess(
	now time.Time,
	intent *models.TradeIntent,
	fv models.FeatureVector,
	stress models.StressIndex,
	account models.AccountState,
	impactFn ImpactFn,
) models.RiskDecision {
	g.tilt.Observe(now)

	if intent == nil {
		return models.RiskDecision{
			Timestamp: now,
			Outcome:   models.OutcomeDeny,
			Reasons: []models.Reason{{
				Code:    CodeNoSignal,
				Message: FormatReason(CodeNoSignal, nil),
				Outcome: models.OutcomeDeny,
			}},
			Facts: map[string]float64{},
		}
	}

	a := &assessment{
		now:      now,
		intent:   *intent,
		fv:       fv,
		stress:   stress,
		account:  account,
		impactFn: impactFn,
		notional: intent.NotionalUSD,
		facts:    map[string]float64{},
	}
	if a.impactFn == nil {
		worst := fv.WorstImpactBps()
		a.impactFn = func(models.Direction, float64) float64 { return worst }
	}

	decision := models.RiskDecision{
		Timestamp:           now,
		Outcome:             models.OutcomeAllow,
		OriginalNotionalUSD: intent.NotionalUSD,
		Facts:               a.facts,
	}

	for _, check := range g.checks {
		result := check.fn(a)
		decision.Reasons = append(decision.Reasons, result.reasons...)

		if result.outcome == models.OutcomeDeny {
			decision.Outcome = models.OutcomeDeny
			decision.AdjustedNotionalUSD = 0
			g.log.Warn("intent denied",
				logger.String("check", check.name),
				logger.String("reason", result.reasons[0].Code),
			)
			return decision
		}
		if result.multiplier < 1 {
			a.notional *= result.multiplier
			decision.Outcome = models.OutcomeReductions
		}
	}

	decision.AdjustedNotionalUSD = a.notional
	if decision.Outcome == models.OutcomeReductions {
		a.facts["original_size"] = decision.OriginalNotionalUSD
		a.facts["reduced_size"] = a.notional
		decision.Reasons = append(decision.Reasons, models.Reason{
			Code:    CodePositionSizeReduced,
			Message: FormatReason(CodePositionSizeReduced, a.facts),
			Outcome: models.OutcomeReductions,
		})
	}

	decision.MaxSlippageBps = math.Min(a.facts["impact_bps"]*1.5, g.cfg.MaxSlippageCapBps)
	return decision
}

// RecordTrade feeds a realized trade result into the session counters and
// arms the cooldown once the consecutive-loss streak reaches the limit.
func (g *Guardian) RecordTrade(ts time.Time, pnl float64) {
	g.tilt.RecordTrade(ts, pnl)
	if g.cfg.LossStreakLimit > 0 && g.tilt.LossStreak() >= g.cfg.LossStreakLimit {
		g.cooldownUntil = ts.Add(g.cfg.CooldownDuration)
		g.log.Warn("cooldown armed",
			logger.Int("loss_streak", g.tilt.LossStreak()),
			logger.Time("until", g.cooldownUntil),
		)
	}
}

// CooldownUntil reports when the current cooldown expires; zero when none
// is armed.
func (g *Guardian) CooldownUntil() time.Time { return g.cooldownUntil }

// Tilt exposes the tracker for status reporting.
func (g *Guardian) Tilt() *TiltTracker { return g.tilt }

// Reset clears all session state. Session start only.
func (g *Guardian) Reset() {
	g.tilt.Reset()
	g.cooldownUntil = time.Time{}
}
