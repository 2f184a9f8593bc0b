package features

import (
	"time"

	"ToxicTide/internal/domain/models"
)

// TradeAggregation is a summary of recent tape activity.
type TradeAggregation struct {
	Volume          float64
	Trades          int
	BuyVolume       float64
	SellVolume      float64
	AvgTrade        float64
	MaxTrade        float64
	VWAP            float64
	SignedImbalance float64
}

// ToxicScore is a simplified VPIN proxy: the absolute signed volume
// imbalance, in [0, 1].
func (a TradeAggregation) ToxicScore() float64 {
	if a.SignedImbalance < 0 {
		return -a.SignedImbalance
	}
	return a.SignedImbalance
}

// TradeTape keeps a sliding time window of trades. Expiry is driven by the
// timestamps carried on trades and snapshots, never by the wall clock, so a
// replay over recorded data reproduces the exact same aggregates.
type TradeTape struct {
	window time.Duration
	trades []models.Trade
}

func NewTradeTape(window time.Duration) *TradeTape {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &TradeTape{window: window}
}

// Add appends trades and evicts entries older than the window relative to
// the given observation time.
func (t *TradeTape) Add(now time.Time, trades ...models.Trade) {
	t.trades = append(t.trades, trades...)
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(t.trades) && t.trades[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.trades = append(t.trades[:0], t.trades[i:]...)
	}
}

// Len returns the number of retained trades.
func (t *TradeTape) Len() int { return len(t.trades) }

// Aggregate summarizes trades within span of now. Trades with an unknown
// side split their volume evenly between buy and sell.
func (t *TradeTape) Aggregate(now time.Time, span time.Duration) TradeAggregation {
	cutoff := now.Add(-span)
	var agg TradeAggregation
	var notional float64
	for _, tr := range t.trades {
		if tr.Timestamp.Before(cutoff) {
			continue
		}
		agg.Trades++
		notional += tr.Price * tr.Size
		if tr.Size > agg.MaxTrade {
			agg.MaxTrade = tr.Size
		}
		switch tr.Side {
		case models.SideBuy:
			agg.BuyVolume += tr.Size
		case models.SideSell:
			agg.SellVolume += tr.Size
		default:
			agg.BuyVolume += tr.Size / 2
			agg.SellVolume += tr.Size / 2
		}
	}
	agg.Volume = agg.BuyVolume + agg.SellVolume
	if agg.Trades > 0 {
		agg.AvgTrade = agg.Volume / float64(agg.Trades)
	}
	if agg.Volume > 0 {
		agg.VWAP = notional / agg.Volume
		agg.SignedImbalance = (agg.BuyVolume - agg.SellVolume) / agg.Volume
	}
	return agg
}

// Reset drops all retained trades.
func (t *TradeTape) Reset() { t.trades = t.trades[:0] }
