package risk

import "fmt"

// Reason codes attached to risk decisions. Every evaluated check reports
// one, including the checks that passed, so a decision can always be
// audited without re-running the chain.
const (
	// Data quality.
	CodeDataStale        = "DATA_STALE"
	CodeDataInconsistent = "DATA_INCONSISTENT"
	CodeDataQualityOK    = "DATA_QUALITY_OK"

	// Circuit breakers.
	CodeDailyLossExceeded = "DAILY_LOSS_EXCEEDED"
	CodeDailyLossOK       = "DAILY_LOSS_OK"
	CodeCooldownActive    = "COOLDOWN_ACTIVE"
	CodeCooldownOK        = "COOLDOWN_OK"

	// Position limits.
	CodePositionLimitExceeded = "POSITION_LIMIT_EXCEEDED"
	CodePositionLimitOK       = "POSITION_LIMIT_OK"

	// Market conditions.
	CodeImpactHardCapExceeded  = "IMPACT_HARD_CAP_EXCEEDED"
	CodeImpactEntryCapExceeded = "IMPACT_ENTRY_CAP_EXCEEDED"
	CodeToxicDanger            = "TOXIC_DANGER_LEVEL"
	CodeToxicWarn              = "TOXIC_WARN_LEVEL"
	CodeImpactToxicityOK       = "IMPACT_TOXICITY_OK"
	CodeMarketStressDanger     = "MARKET_STRESS_DANGER"
	CodeMarketStressWarn       = "MARKET_STRESS_WARN"
	CodeMarketStressOK         = "MARKET_STRESS_OK"

	// Behavioral limits.
	CodeTradeFrequencyExceeded = "TRADE_FREQUENCY_EXCEEDED"
	CodeTradeFrequencyOK       = "TRADE_FREQUENCY_OK"

	// Adjustments and terminals.
	CodePositionSizeReduced = "POSITION_SIZE_REDUCED"
	CodeNoSignal            = "NO_SIGNAL"
)

// FormatReason renders a reason code with its facts into a human-readable
// message. Unknown codes fall back to the code itself so a decision is
// never silent.
func FormatReason(code string, facts map[string]float64) string {
	f := func(key string) float64 { return facts[key] }

	switch code {
	case CodeDataStale:
		return fmt.Sprintf("market data stale (%.1fs since last update, limit %.0fs)",
			f("stale_sec"), f("stale_limit_sec"))
	case CodeDataInconsistent:
		return fmt.Sprintf("order book inconsistent (spread %.6f <= 0)", f("spread"))
	case CodeDataQualityOK:
		return "data quality ok"
	case CodeDailyLossExceeded:
		return fmt.Sprintf("daily loss limit breached (P&L %.2f%% < floor -%.2f%%)",
			f("daily_pnl_pct"), f("max_daily_loss_pct"))
	case CodeDailyLossOK:
		return fmt.Sprintf("daily loss ok (P&L %.2f%%, floor -%.2f%%)",
			f("daily_pnl_pct"), f("max_daily_loss_pct"))
	case CodeCooldownActive:
		return fmt.Sprintf("cooldown active (%.0fs remaining)", f("cooldown_remaining_sec"))
	case CodeCooldownOK:
		return "no active cooldown"
	case CodePositionLimitExceeded:
		return fmt.Sprintf("position limit reached (current $%.0f + proposed $%.0f >= cap $%.0f)",
			f("position_notional"), f("proposed_notional"), f("max_position_notional"))
	case CodePositionLimitOK:
		return fmt.Sprintf("position within limit (current $%.0f + proposed $%.0f < cap $%.0f)",
			f("position_notional"), f("proposed_notional"), f("max_position_notional"))
	case CodeImpactHardCapExceeded:
		return fmt.Sprintf("impact %.2f bps > hard cap %.2f bps", f("impact_bps"), f("hard_cap_bps"))
	case CodeImpactEntryCapExceeded:
		return fmt.Sprintf("impact %.2f bps > cap %.2f bps, reduced", f("impact_bps"), f("entry_cap_bps"))
	case CodeToxicDanger:
		return fmt.Sprintf("toxic flow %.2f >= danger threshold %.2f", f("toxic"), f("toxic_danger"))
	case CodeToxicWarn:
		return fmt.Sprintf("toxic flow %.2f >= warn threshold %.2f, reduced", f("toxic"), f("toxic_warn"))
	case CodeImpactToxicityOK:
		return fmt.Sprintf("impact %.2f bps and toxic flow %.2f within caps", f("impact_bps"), f("toxic"))
	case CodeMarketStressDanger:
		return "market stress DANGER, new entries suspended"
	case CodeMarketStressWarn:
		return fmt.Sprintf("market stress WARN, notional scaled by %.2f", f("stress_warn_fraction"))
	case CodeMarketStressOK:
		return "market stress ok"
	case CodeTradeFrequencyExceeded:
		return fmt.Sprintf("trade frequency limit reached (%.0f in last hour >= %.0f)",
			f("trades_last_hour"), f("max_trades_per_hour"))
	case CodeTradeFrequencyOK:
		return fmt.Sprintf("trade frequency ok (%.0f in last hour, limit %.0f)",
			f("trades_last_hour"), f("max_trades_per_hour"))
	case CodePositionSizeReduced:
		return fmt.Sprintf("notional reduced from $%.2f to $%.2f", f("original_size"), f("reduced_size"))
	case CodeNoSignal:
		return "no trade signal this tick"
	default:
		return code
	}
}
