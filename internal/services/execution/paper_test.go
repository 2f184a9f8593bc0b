package execution

import (
	"context"
	"math"
	"testing"
	"time"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

func testPaper(cfg PaperConfig) *PaperAdapter {
	return NewPaperAdapter(cfg, logger.Nop())
}

func paperConfig() PaperConfig {
	return PaperConfig{
		StartingBalanceUSD: 10000,
		MinSlippageBps:     1,
		MaxSlippageBps:     5,
		FeeBps:             2,
		Seed:               42,
	}
}

func takerLongPlan(notional float64) *models.ExecutionPlan {
	return &models.ExecutionPlan{
		Timestamp: time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
		Mode:      models.PlanModeTaker,
		Orders: []models.ChildOrder{{
			Type:        models.OrderTaker,
			Direction:   models.DirectionLong,
			NotionalUSD: notional,
		}},
		TotalNotionalUSD: notional,
	}
}

func TestPaperTakerFillAppliesAdverseSlippage(t *testing.T) {
	p := testPaper(paperConfig())
	p.UpdateMark(2000)

	fills, err := p.Execute(context.Background(), takerLongPlan(1000))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("got %d fills, want 1", len(fills))
	}

	f := fills[0]
	minPrice := 2000 * (1 + 1.0/10000)
	maxPrice := 2000 * (1 + 5.0/10000)
	if f.Price < minPrice || f.Price > maxPrice {
		t.Fatalf("fill price %.4f outside slippage band [%.4f, %.4f]", f.Price, minPrice, maxPrice)
	}
	if f.Side != models.SideBuy {
		t.Fatalf("side = %s, want %s", f.Side, models.SideBuy)
	}
	wantFee := 1000 * 2.0 / 10000
	if math.Abs(f.FeeUSD-wantFee) > 1e-9 {
		t.Fatalf("fee = %.4f, want %.4f", f.FeeUSD, wantFee)
	}
}

func TestPaperShortFillsBelowMark(t *testing.T) {
	p := testPaper(paperConfig())
	p.UpdateMark(2000)

	plan := takerLongPlan(1000)
	plan.Orders[0].Direction = models.DirectionShort

	fills, err := p.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fills[0].Price >= 2000 {
		t.Fatalf("short fill price %.4f not below mark", fills[0].Price)
	}
	if fills[0].Side != models.SideSell {
		t.Fatalf("side = %s, want %s", fills[0].Side, models.SideSell)
	}
}

func TestPaperMakerFillsAtRestingPrice(t *testing.T) {
	cfg := paperConfig()
	cfg.MinSlippageBps = 0
	cfg.MaxSlippageBps = 0
	p := testPaper(cfg)

	plan := &models.ExecutionPlan{
		Timestamp: time.Now().UTC(),
		Mode:      models.PlanModeMaker,
		Orders: []models.ChildOrder{{
			Type:        models.OrderMaker,
			Direction:   models.DirectionLong,
			Price:       1995,
			NotionalUSD: 500,
		}},
	}
	fills, err := p.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fills[0].Price != 1995 {
		t.Fatalf("maker fill price %.2f, want resting price 1995", fills[0].Price)
	}
}

func TestPaperAccountTracksPositionAndPnL(t *testing.T) {
	cfg := paperConfig()
	cfg.MinSlippageBps = 0
	cfg.MaxSlippageBps = 0
	cfg.FeeBps = 0
	p := testPaper(cfg)
	p.UpdateMark(2000)

	if _, err := p.Execute(context.Background(), takerLongPlan(1000)); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// 0.5 units long from 2000; at 2100 the position is worth 1050.
	acct := p.Account(2100)
	if math.Abs(acct.PositionNotionalUSD-1050) > 1e-6 {
		t.Fatalf("position notional = %.4f, want 1050", acct.PositionNotionalUSD)
	}
	if math.Abs(acct.UnrealizedPnLUSD-50) > 1e-6 {
		t.Fatalf("unrealized = %.4f, want 50", acct.UnrealizedPnLUSD)
	}
	if acct.BalanceUSD != 10000 {
		t.Fatalf("balance = %.4f, want unchanged 10000", acct.BalanceUSD)
	}
}

func TestPaperClosingRealizesPnL(t *testing.T) {
	cfg := paperConfig()
	cfg.MinSlippageBps = 0
	cfg.MaxSlippageBps = 0
	cfg.FeeBps = 0
	p := testPaper(cfg)

	p.UpdateMark(2000)
	if _, err := p.Execute(context.Background(), takerLongPlan(1000)); err != nil {
		t.Fatalf("open: %v", err)
	}

	// Close the 0.5 units at 2100 for +50 realized.
	p.UpdateMark(2100)
	closePlan := takerLongPlan(1050)
	closePlan.Orders[0].Direction = models.DirectionShort
	if _, err := p.Execute(context.Background(), closePlan); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := p.RealizedPnL(); math.Abs(got-50) > 1e-6 {
		t.Fatalf("realized = %.4f, want 50", got)
	}
	acct := p.Account(2100)
	if math.Abs(acct.PositionNotionalUSD) > 1e-9 {
		t.Fatalf("position notional = %.4f, want flat", acct.PositionNotionalUSD)
	}
	if math.Abs(acct.BalanceUSD-10050) > 1e-6 {
		t.Fatalf("balance = %.4f, want 10050", acct.BalanceUSD)
	}
}

func TestPaperFeesReduceBalance(t *testing.T) {
	cfg := paperConfig()
	cfg.MinSlippageBps = 0
	cfg.MaxSlippageBps = 0
	p := testPaper(cfg)
	p.UpdateMark(2000)

	if _, err := p.Execute(context.Background(), takerLongPlan(1000)); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	acct := p.Account(2000)
	wantBalance := 10000 - 1000*2.0/10000
	if math.Abs(acct.BalanceUSD-wantBalance) > 1e-9 {
		t.Fatalf("balance = %.4f, want %.4f", acct.BalanceUSD, wantBalance)
	}
}

func TestPaperSeedReproducesFills(t *testing.T) {
	run := func() []models.Fill {
		p := testPaper(paperConfig())
		p.UpdateMark(2000)
		fills, err := p.Execute(context.Background(), takerLongPlan(1000))
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		return fills
	}

	a, b := run(), run()
	if a[0].Price != b[0].Price {
		t.Fatalf("same seed produced different fills: %.6f vs %.6f", a[0].Price, b[0].Price)
	}
}
