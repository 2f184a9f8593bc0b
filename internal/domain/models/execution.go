package models

import "time"

// OrderType distinguishes resting and crossing child orders.
type OrderType string

const (
	OrderMaker OrderType = "maker" // resting limit order
	OrderTaker OrderType = "taker" // crossing market order
)

// PlanMode describes the execution style chosen by the planner.
type PlanMode string

const (
	PlanModeMaker      PlanMode = "maker"
	PlanModeTaker      PlanMode = "taker"
	PlanModeSliced     PlanMode = "sliced"
	PlanModeReduceOnly PlanMode = "reduce_only" // no entry; denied or no signal
)

// ChildOrder is one slice of an execution plan.
type ChildOrder struct {
	Type        OrderType     `json:"type"`
	Direction   Direction     `json:"direction"`
	Price       float64       `json:"price,omitempty"` // unset for taker orders
	NotionalUSD float64       `json:"notional_usd"`
	Offset      time.Duration `json:"offset"` // delay from plan time
	ReduceOnly  bool          `json:"reduce_only,omitempty"`
}

// ExecutionPlan is the planner's output for one approved decision. The child
// notionals always sum exactly to the decision's adjusted notional.
type ExecutionPlan struct {
	Timestamp        time.Time    `json:"ts"`
	Mode             PlanMode     `json:"mode"`
	Orders           []ChildOrder `json:"orders"`
	TotalNotionalUSD float64      `json:"total_notional_usd"`
	Reasons          []string     `json:"reasons"`
}

// Fill is one execution acknowledgment from the adapter.
type Fill struct {
	Timestamp time.Time `json:"ts"`
	OrderID   string    `json:"order_id"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	FeeUSD    float64   `json:"fee_usd"`
	Side      Side      `json:"side"`
}

// AccountState is the adapter-reported account snapshot used by the risk
// checks (position cap) and PnL accounting.
type AccountState struct {
	BalanceUSD          float64 `json:"balance_usd"`
	PositionNotionalUSD float64 `json:"position_notional_usd"`
	UnrealizedPnLUSD    float64 `json:"unrealized_pnl_usd"`
}
