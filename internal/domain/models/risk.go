package models

import "time"

// Outcome of a risk assessment.
type Outcome string

const (
	OutcomeAllow      Outcome = "ALLOW"
	OutcomeReductions Outcome = "ALLOW_WITH_REDUCTIONS"
	OutcomeDeny       Outcome = "DENY"
)

// Reason is one evaluated risk check's contribution to the decision.
// Non-blocking checks still report so the full chain is traceable.
type Reason struct {
	Code     string  `json:"code"`
	Message  string  `json:"message"`
	Outcome  Outcome `json:"outcome"` // what this check alone concluded
	Blocking bool    `json:"blocking,omitempty"`
}

// RiskDecision is the immutable result of running a TradeIntent through the
// priority-ordered risk checks.
type RiskDecision struct {
	Timestamp time.Time `json:"ts"`
	Outcome   Outcome   `json:"outcome"`

	// OriginalNotionalUSD is the intent's requested notional;
	// AdjustedNotionalUSD is what survives the reductions (0 on DENY).
	OriginalNotionalUSD float64 `json:"original_notional_usd"`
	AdjustedNotionalUSD float64 `json:"adjusted_notional_usd"`

	MaxSlippageBps float64 `json:"max_slippage_bps"`

	// Reasons in check order, one per evaluated check.
	Reasons []Reason `json:"reasons"`

	// Facts are the numeric inputs the checks looked at, for audit/replay.
	Facts map[string]float64 `json:"facts,omitempty"`
}

// Denied reports whether the decision blocks execution.
func (d *RiskDecision) Denied() bool { return d.Outcome == OutcomeDeny }

// BlockingReason returns the first blocking reason, if any.
func (d *RiskDecision) BlockingReason() (Reason, bool) {
	for _, r := range d.Reasons {
		if r.Blocking {
			return r, true
		}
	}
	return Reason{}, false
}
