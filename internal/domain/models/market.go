package models

import "time"

// Side is the aggressor side of a trade print.
type Side string

const (
	SideBuy     Side = "buy"
	SideSell    Side = "sell"
	SideUnknown Side = "unknown"
)

// BookLevel is a single price level of the order book.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// NotionalUSD returns the quote-currency depth of the level.
func (l BookLevel) NotionalUSD() float64 {
	return l.Price * l.Size
}

// Trade is one trade print from the market feed.
type Trade struct {
	Timestamp time.Time `json:"ts"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	Side      Side      `json:"side"`
}

// MarketSnapshot is the normalized order-book and trade state for one tick.
// It is immutable once captured and superseded by the next tick's snapshot.
type MarketSnapshot struct {
	Timestamp time.Time   `json:"ts"`
	Symbol    string      `json:"symbol"`
	Seq       uint64      `json:"seq"`
	Bids      []BookLevel `json:"bids"` // descending price
	Asks      []BookLevel `json:"asks"` // ascending price
	Trades    []Trade     `json:"trades,omitempty"`
	MsgCount  int         `json:"msg_count"` // feed messages since previous snapshot
}

// Mid returns the mid price, or 0 when one side of the book is empty.
func (s *MarketSnapshot) Mid() float64 {
	if len(s.Bids) == 0 || len(s.Asks) == 0 {
		return 0
	}
	return (s.Bids[0].Price + s.Asks[0].Price) / 2
}

// Spread returns best ask minus best bid.
func (s *MarketSnapshot) Spread() float64 {
	if len(s.Bids) == 0 || len(s.Asks) == 0 {
		return 0
	}
	return s.Asks[0].Price - s.Bids[0].Price
}

// SpreadBps returns the spread in basis points of the mid price.
func (s *MarketSnapshot) SpreadBps() float64 {
	mid := s.Mid()
	if mid == 0 {
		return 0
	}
	return s.Spread() / mid * 10000
}

// Consistent reports whether the book is internally consistent:
// both sides present, positive spread, bids descending, asks ascending.
func (s *MarketSnapshot) Consistent() bool {
	if len(s.Bids) == 0 || len(s.Asks) == 0 {
		return false
	}
	if s.Asks[0].Price <= s.Bids[0].Price {
		return false
	}
	for i := 1; i < len(s.Bids); i++ {
		if s.Bids[i].Price > s.Bids[i-1].Price {
			return false
		}
	}
	for i := 1; i < len(s.Asks); i++ {
		if s.Asks[i].Price < s.Asks[i-1].Price {
			return false
		}
	}
	return true
}
