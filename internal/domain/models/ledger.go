package models

import "time"

// LedgerRecord is one full tick's audit record: every intermediate artifact
// of the decision chain, append-only and ordered by Seq. Given the recorded
// snapshots and the same configuration, replaying the chain reproduces the
// recorded decisions.
type LedgerRecord struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`

	Snapshot *MarketSnapshot `json:"snapshot"`
	Features *FeatureVector  `json:"features"`
	OAD      *AnomalyReport  `json:"oad"`
	VAD      *AnomalyReport  `json:"vad"`
	Stress   *StressIndex    `json:"stress"`
	Regime   *RegimeState    `json:"regime"`
	Intent   *TradeIntent    `json:"intent,omitempty"` // nil when no signal
	Risk     *RiskDecision   `json:"risk"`
	Plan     *ExecutionPlan  `json:"plan"`
	Fills    []Fill          `json:"fills,omitempty"`

	// Account is the adapter state the risk checks saw this tick.
	Account *AccountState `json:"account,omitempty"`
	// Closed lists positions exited this tick by stop, target or expiry.
	Closed []Position `json:"closed_positions,omitempty"`
	// Paused marks ticks where the decision segment was suspended.
	Paused bool `json:"paused,omitempty"`

	// Explain is the human-readable justification for the tick's decision.
	Explain string `json:"explain"`
}
