package models

import "time"

// Direction of a proposed trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// TradeIntent is the signal engine's proposal for one tick: at most one per
// tick, carrying the regime and stress context that produced it. The risk
// guardian consumes it; the execution planner never mutates it.
type TradeIntent struct {
	Timestamp   time.Time     `json:"ts"`
	Direction   Direction     `json:"direction"`
	NotionalUSD float64       `json:"notional_usd"`
	Strategy    string        `json:"strategy"`
	EntryPrice  float64       `json:"entry_price"`
	StopPrice   float64       `json:"stop_price"`
	TakeProfit  float64       `json:"take_profit,omitempty"`
	Confidence  float64       `json:"confidence"`
	TTL         time.Duration `json:"ttl_sec"`
	Regime      RegimeState   `json:"regime"`
	Stress      Severity      `json:"stress"`
}
