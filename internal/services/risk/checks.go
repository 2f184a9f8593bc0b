package risk

import (
	"time"

	"ToxicTide/internal/domain/models"
)

// ImpactFn estimates execution impact in bps for a notional in the given
// direction against the current book. Supplied per assessment so the
// guardian never holds a reference to market state.
type ImpactFn func(direction models.Direction, notionalUSD float64) float64

// assessment is the mutable fold state threaded through the check chain
// for one intent.
type assessment struct {
	now      time.Time
	intent   models.TradeIntent
	fv       models.FeatureVector
	stress   models.StressIndex
	account  models.AccountState
	impactFn ImpactFn

	// notional is the running approved notional; reductions shrink it.
	notional float64
	facts    map[string]float64
}

// checkResult is the outcome of one check: an outcome, a notional
// multiplier (1 when the check does not reduce), and the reasons it
// contributes. Checks are pure with respect to guardian state; only the
// guardian mutates session counters.
type checkResult struct {
	outcome    models.Outcome
	multiplier float64
	reasons    []models.Reason
}

func pass(code string, facts map[string]float64) checkResult {
	return checkResult{
		outcome:    models.OutcomeAllow,
		multiplier: 1,
		reasons: []models.Reason{{
			Code:    code,
			Message: FormatReason(code, facts),
			Outcome: models.OutcomeAllow,
		}},
	}
}

func deny(code string, facts map[string]float64) checkResult {
	return checkResult{
		outcome:    models.OutcomeDeny,
		multiplier: 0,
		reasons: []models.Reason{{
			Code:     code,
			Message:  FormatReason(code, facts),
			Outcome:  models.OutcomeDeny,
			Blocking: true,
		}},
	}
}

// Check 1: data quality. A stale snapshot or an inconsistent book is
// terminal for the tick.
func (g *Guardian) checkDataQuality(a *assessment) checkResult {
	staleSec := a.now.Sub(a.fv.Timestamp).Seconds()
	a.facts["stale_sec"] = staleSec
	a.facts["stale_limit_sec"] = g.cfg.StalenessThreshold.Seconds()
	if staleSec > g.cfg.StalenessThreshold.Seconds() {
		return deny(CodeDataStale, a.facts)
	}
	a.facts["spread"] = a.fv.Spread
	if a.fv.Spread <= 0 {
		return deny(CodeDataInconsistent, a.facts)
	}
	return pass(CodeDataQualityOK, a.facts)
}

// Check 2: daily loss circuit breaker.
func (g *Guardian) checkDailyLoss(a *assessment) checkResult {
	pnlPct := g.tilt.DailyPnLPct(a.account.BalanceUSD)
	a.facts["daily_pnl_pct"] = pnlPct
	a.facts["max_daily_loss_pct"] = g.cfg.MaxDailyLossPct
	if pnlPct < -g.cfg.MaxDailyLossPct {
		return deny(CodeDailyLossExceeded, a.facts)
	}
	return pass(CodeDailyLossOK, a.facts)
}

// Check 3: loss-streak cooldown.
func (g *Guardian) checkCooldown(a *assessment) checkResult {
	if !g.cooldownUntil.IsZero() && a.now.Before(g.cooldownUntil) {
		a.facts["cooldown_remaining_sec"] = g.cooldownUntil.Sub(a.now).Seconds()
		return deny(CodeCooldownActive, a.facts)
	}
	return pass(CodeCooldownOK, a.facts)
}

// Check 4: position-size cap over current plus proposed exposure.
func (g *Guardian) checkPositionCap(a *assessment) checkResult {
	a.facts["position_notional"] = a.account.PositionNotionalUSD
	a.facts["proposed_notional"] = a.notional
	a.facts["max_position_notional"] = g.cfg.MaxPositionNotionalUSD
	if a.account.PositionNotionalUSD+a.notional >= g.cfg.MaxPositionNotionalUSD {
		return deny(CodePositionLimitExceeded, a.facts)
	}
	return pass(CodePositionLimitOK, a.facts)
}

// Check 5: impact and toxicity. Hard breaches deny; an impact between the
// entry cap and the hard cap converges the notional down to the entry cap.
func (g *Guardian) checkImpactToxicity(a *assessment) checkResult {
	impact := a.impactFn(a.intent.Direction, a.notional)
	toxic := a.fv.Toxic

	a.facts["impact_bps"] = impact
	a.facts["toxic"] = toxic
	a.facts["hard_cap_bps"] = g.cfg.ImpactHardCapBps
	a.facts["entry_cap_bps"] = g.cfg.ImpactEntryCapBps
	a.facts["toxic_danger"] = g.cfg.ToxicDanger

	if impact > g.cfg.ImpactHardCapBps {
		return deny(CodeImpactHardCapExceeded, a.facts)
	}
	if toxic >= g.cfg.ToxicDanger {
		return deny(CodeToxicDanger, a.facts)
	}

	result := checkResult{outcome: models.OutcomeAllow, multiplier: 1}

	if impact > g.cfg.ImpactEntryCapBps {
		adjusted := g.convergeToCap(a, impact)
		result.multiplier = adjusted / a.notional
		result.outcome = models.OutcomeReductions
		result.reasons = append(result.reasons, models.Reason{
			Code:    CodeImpactEntryCapExceeded,
			Message: FormatReason(CodeImpactEntryCapExceeded, a.facts),
			Outcome: models.OutcomeReductions,
		})
	}

	if toxic >= g.cfg.ToxicWarn {
		a.facts["toxic_warn"] = g.cfg.ToxicWarn
		result.multiplier *= 0.7
		result.outcome = models.OutcomeReductions
		result.reasons = append(result.reasons, models.Reason{
			Code:    CodeToxicWarn,
			Message: FormatReason(CodeToxicWarn, a.facts),
			Outcome: models.OutcomeReductions,
		})
	}

	if len(result.reasons) == 0 {
		return pass(CodeImpactToxicityOK, a.facts)
	}
	return result
}

// convergeToCap finds the largest notional at or below the current one
// whose estimated impact stays at or under the entry cap. A proportional
// scale-down seeds the search; bisection then tightens it against the
// actual book shape, which is convex rather than linear in notional.
func (g *Guardian) convergeToCap(a *assessment, impact float64) float64 {
	capBps := g.cfg.ImpactEntryCapBps
	guess := a.notional * capBps / impact
	if a.impactFn(a.intent.Direction, guess) > capBps {
		// The proportional guess overshoots on a thin book; bisect below it.
		lo, hi := 0.0, guess
		for i := 0; i < 30; i++ {
			mid := (lo + hi) / 2
			if a.impactFn(a.intent.Direction, mid) <= capBps {
				lo = mid
			} else {
				hi = mid
			}
		}
		return lo
	}
	// The guess is safe; bisect upward to reclaim notional the linear
	// model gave away.
	lo, hi := guess, a.notional
	for i := 0; i < 30; i++ {
		mid := (lo + hi) / 2
		if a.impactFn(a.intent.Direction, mid) <= capBps {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// Check 6: composite market stress.
func (g *Guardian) checkMarketStress(a *assessment) checkResult {
	a.facts["stress_score"] = a.stress.Score
	switch a.stress.Level {
	case models.SeverityDanger:
		return deny(CodeMarketStressDanger, a.facts)
	case models.SeverityWarn:
		a.facts["stress_warn_fraction"] = g.cfg.StressWarnFraction
		return checkResult{
			outcome:    models.OutcomeReductions,
			multiplier: g.cfg.StressWarnFraction,
			reasons: []models.Reason{{
				Code:    CodeMarketStressWarn,
				Message: FormatReason(CodeMarketStressWarn, a.facts),
				Outcome: models.OutcomeReductions,
			}},
		}
	default:
		return pass(CodeMarketStressOK, a.facts)
	}
}

// Check 7: trailing-hour trade frequency.
func (g *Guardian) checkTradeFrequency(a *assessment) checkResult {
	count := g.tilt.TradesLastHour(a.now)
	a.facts["trades_last_hour"] = float64(count)
	a.facts["max_trades_per_hour"] = float64(g.cfg.MaxTradesPerHour)
	if count >= g.cfg.MaxTradesPerHour {
		return deny(CodeTradeFrequencyExceeded, a.facts)
	}
	return pass(CodeTradeFrequencyOK, a.facts)
}
