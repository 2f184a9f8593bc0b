package features

import (
	"math"
	"testing"

	"ToxicTide/internal/domain/models"
)

var asks = []models.BookLevel{
	{Price: 100.0, Size: 10},  // $1000
	{Price: 101.0, Size: 20},  // $2020
	{Price: 102.0, Size: 100}, // $10200
}

func TestEstimateImpactSingleLevel(t *testing.T) {
	got := EstimateImpactBps(asks, models.SideBuy, 500, 99.5)
	want := (100.0 - 99.5) / 99.5 * 10000
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("impact = %v, want %v", got, want)
	}
}

func TestEstimateImpactWalksLevels(t *testing.T) {
	// $2000 consumes all of level one and $1000 of level two.
	got := EstimateImpactBps(asks, models.SideBuy, 2000, 99.5)
	qty := 10.0 + 1000.0/101.0
	avg := 2000.0 / qty
	want := (avg - 99.5) / 99.5 * 10000
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("impact = %v, want %v", got, want)
	}
	if got <= EstimateImpactBps(asks, models.SideBuy, 500, 99.5) {
		t.Fatal("larger order should have larger impact")
	}
}

func TestEstimateImpactInsufficientLiquidity(t *testing.T) {
	if got := EstimateImpactBps(asks, models.SideBuy, 1e9, 99.5); got != ImpactUnfillable {
		t.Fatalf("impact = %v, want unfillable sentinel", got)
	}
	if got := EstimateImpactBps(nil, models.SideBuy, 100, 99.5); got != ImpactUnfillable {
		t.Fatalf("empty book impact = %v, want unfillable sentinel", got)
	}
}

func TestEstimateImpactZeroQty(t *testing.T) {
	if got := EstimateImpactBps(asks, models.SideBuy, 0, 99.5); got != 0 {
		t.Fatalf("zero qty impact = %v, want 0", got)
	}
}

func TestDepthWithinImpactMonotonic(t *testing.T) {
	mid := 99.5
	depth := DepthWithinImpactBps(asks, models.SideBuy, 100, mid)
	if depth <= 0 {
		t.Fatal("expected positive executable depth")
	}
	if got := EstimateImpactBps(asks, models.SideBuy, depth, mid); got > 100 {
		t.Fatalf("impact at reported depth = %v, want <= 100", got)
	}
	wider := DepthWithinImpactBps(asks, models.SideBuy, 300, mid)
	if wider < depth {
		t.Fatalf("looser cap gives less depth: %v < %v", wider, depth)
	}
}

func TestSlippageBps(t *testing.T) {
	if got := SlippageBps(100.5, 100.0, models.SideBuy); math.Abs(got-50) > 1e-9 {
		t.Errorf("buy slippage = %v, want 50", got)
	}
	if got := SlippageBps(99.5, 100.0, models.SideSell); math.Abs(got-50) > 1e-9 {
		t.Errorf("sell slippage = %v, want 50", got)
	}
}
