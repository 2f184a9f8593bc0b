package models

import "time"

// CloseReason records why a position was exited.
type CloseReason string

const (
	CloseStopLoss   CloseReason = "stop_loss"
	CloseTakeProfit CloseReason = "take_profit"
	CloseExpired    CloseReason = "ttl_expired"
	CloseManual     CloseReason = "manual"
)

// Position is one open or closed position tracked for the session.
type Position struct {
	ID          string    `json:"id"`
	Direction   Direction `json:"direction"`
	EntryPrice  float64   `json:"entry_price"`
	EntryTime   time.Time `json:"entry_time"`
	Size        float64   `json:"size"`
	NotionalUSD float64   `json:"notional_usd"`
	StopPrice   float64   `json:"stop_price"`
	TakeProfit  float64   `json:"take_profit,omitempty"`
	Strategy    string    `json:"strategy"`
	// TTL bounds the holding time; zero means no expiry.
	TTL time.Duration `json:"ttl,omitempty"`

	Open        bool        `json:"open"`
	ClosePrice  float64     `json:"close_price,omitempty"`
	CloseTime   time.Time   `json:"close_time,omitempty"`
	CloseCause  CloseReason `json:"close_cause,omitempty"`
	RealizedPnL float64     `json:"realized_pnl,omitempty"`
}

// UnrealizedPnL values the position at the given price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if !p.Open {
		return p.RealizedPnL
	}
	if p.Direction == DirectionLong {
		return (price - p.EntryPrice) * p.Size
	}
	return (p.EntryPrice - price) * p.Size
}

// Close marks the position closed and realizes its PnL.
func (p *Position) Close(price float64, at time.Time, cause CloseReason) {
	p.RealizedPnL = p.UnrealizedPnL(price)
	p.Open = false
	p.ClosePrice = price
	p.CloseTime = at
	p.CloseCause = cause
}
