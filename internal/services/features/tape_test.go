package features

import (
	"math"
	"testing"
	"time"

	"ToxicTide/internal/domain/models"
)

var tapeStart = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func trade(offset time.Duration, price, size float64, side models.Side) models.Trade {
	return models.Trade{Timestamp: tapeStart.Add(offset), Price: price, Size: size, Side: side}
}

func TestTapeEvictsByTradeTime(t *testing.T) {
	tape := NewTradeTape(time.Minute)
	tape.Add(tapeStart, trade(0, 100, 1, models.SideBuy))
	tape.Add(tapeStart.Add(30*time.Second), trade(30*time.Second, 100, 1, models.SideBuy))
	if tape.Len() != 2 {
		t.Fatalf("len = %d, want 2", tape.Len())
	}

	// Advancing the observation time past the window drops the first trade
	// even though no new trade arrived with it.
	tape.Add(tapeStart.Add(70 * time.Second))
	if tape.Len() != 1 {
		t.Fatalf("len after eviction = %d, want 1", tape.Len())
	}
}

func TestTapeAggregate(t *testing.T) {
	tape := NewTradeTape(5 * time.Minute)
	tape.Add(tapeStart.Add(time.Minute),
		trade(10*time.Second, 100, 3, models.SideBuy),
		trade(20*time.Second, 102, 1, models.SideSell),
		trade(30*time.Second, 101, 2, models.SideUnknown),
	)

	agg := tape.Aggregate(tapeStart.Add(time.Minute), time.Minute)
	if agg.Trades != 3 {
		t.Fatalf("trades = %d, want 3", agg.Trades)
	}
	if agg.Volume != 6 {
		t.Fatalf("volume = %v, want 6", agg.Volume)
	}
	// Unknown side splits evenly: buys 3+1, sells 1+1.
	if agg.BuyVolume != 4 || agg.SellVolume != 2 {
		t.Fatalf("buy/sell = %v/%v, want 4/2", agg.BuyVolume, agg.SellVolume)
	}
	wantVWAP := (100.0*3 + 102.0*1 + 101.0*2) / 6.0
	if math.Abs(agg.VWAP-wantVWAP) > 1e-9 {
		t.Fatalf("vwap = %v, want %v", agg.VWAP, wantVWAP)
	}
	wantImb := (4.0 - 2.0) / 6.0
	if math.Abs(agg.SignedImbalance-wantImb) > 1e-9 {
		t.Fatalf("imbalance = %v, want %v", agg.SignedImbalance, wantImb)
	}
	if math.Abs(agg.ToxicScore()-wantImb) > 1e-9 {
		t.Fatalf("toxic = %v, want %v", agg.ToxicScore(), wantImb)
	}
	if agg.MaxTrade != 3 {
		t.Fatalf("max trade = %v, want 3", agg.MaxTrade)
	}
}

func TestTapeAggregateSpanNarrowerThanWindow(t *testing.T) {
	tape := NewTradeTape(5 * time.Minute)
	tape.Add(tapeStart.Add(2*time.Minute),
		trade(0, 100, 5, models.SideBuy),
		trade(110*time.Second, 100, 1, models.SideSell),
	)

	agg := tape.Aggregate(tapeStart.Add(2*time.Minute), 30*time.Second)
	if agg.Trades != 1 || agg.SellVolume != 1 {
		t.Fatalf("agg = %+v, want only the recent sell", agg)
	}
}

func TestTapeReset(t *testing.T) {
	tape := NewTradeTape(time.Minute)
	tape.Add(tapeStart, trade(0, 100, 1, models.SideBuy))
	tape.Reset()
	if tape.Len() != 0 {
		t.Fatalf("len after reset = %d, want 0", tape.Len())
	}
	agg := tape.Aggregate(tapeStart, time.Minute)
	if agg.Trades != 0 || agg.Volume != 0 {
		t.Fatalf("agg after reset = %+v, want zero", agg)
	}
}
