// Package explain renders decisions into text a human can audit without
// reading the ledger JSON.
package explain

import (
	"fmt"
	"strings"

	"ToxicTide/internal/domain/models"
)

// Decision builds the explanation for one risk decision. Every evaluated
// check contributes its reason line, so an approval reads as a list of
// passed checks and a denial names what blocked it.
func Decision(risk *models.RiskDecision) string {
	if risk == nil {
		return "no decision"
	}
	switch risk.Outcome {
	case models.OutcomeDeny:
		return denyText(risk)
	case models.OutcomeReductions:
		return reductionText(risk)
	default:
		return allowText(risk)
	}
}

func denyText(risk *models.RiskDecision) string {
	var b strings.Builder
	b.WriteString("trade denied:")
	for _, r := range risk.Reasons {
		if r.Outcome == models.OutcomeDeny {
			fmt.Fprintf(&b, "\n  - %s", r.Message)
		}
	}
	return b.String()
}

func reductionText(risk *models.RiskDecision) string {
	var b strings.Builder
	b.WriteString("trade allowed with reductions:")
	for _, r := range risk.Reasons {
		if r.Outcome == models.OutcomeReductions {
			fmt.Fprintf(&b, "\n  - %s", r.Message)
		}
	}
	fmt.Fprintf(&b, "\nfinal size: $%.2f (from $%.2f)",
		risk.AdjustedNotionalUSD, risk.OriginalNotionalUSD)
	fmt.Fprintf(&b, "\nmax slippage: %.2f bps", risk.MaxSlippageBps)
	return b.String()
}

func allowText(risk *models.RiskDecision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "trade allowed\nsize: $%.2f\nmax slippage: %.2f bps",
		risk.AdjustedNotionalUSD, risk.MaxSlippageBps)
	return b.String()
}

// Tick explains a full tick, including the ticks where no signal fired.
func Tick(intent *models.TradeIntent, risk *models.RiskDecision, plan *models.ExecutionPlan) string {
	if intent == nil {
		return "no signal this tick"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s signal (%s, confidence %.2f)\n",
		intent.Strategy, intent.Direction, intent.Regime, intent.Confidence)
	b.WriteString(Decision(risk))
	if plan != nil && plan.Mode != models.PlanModeReduceOnly {
		fmt.Fprintf(&b, "\nexecution: %s, %d order(s), $%.2f total",
			plan.Mode, len(plan.Orders), plan.TotalNotionalUSD)
	}
	return b.String()
}

// Summary condenses a session's decision counts into one block of text.
func Summary(signals, allows, reductions, denies int) string {
	total := allows + reductions + denies
	var b strings.Builder
	b.WriteString("session summary\n")
	fmt.Fprintf(&b, "- signals: %d\n", signals)
	if total == 0 {
		b.WriteString("- no decisions")
		return b.String()
	}
	pct := func(n int) float64 { return float64(n) / float64(total) * 100 }
	fmt.Fprintf(&b, "- allowed: %d (%.1f%%)\n", allows, pct(allows))
	fmt.Fprintf(&b, "- reduced: %d (%.1f%%)\n", reductions, pct(reductions))
	fmt.Fprintf(&b, "- denied: %d (%.1f%%)", denies, pct(denies))
	return b.String()
}
