package execution

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

// PaperConfig tunes the simulated fill model.
type PaperConfig struct {
	StartingBalanceUSD float64
	// Adverse slippage applied per fill, uniform in [Min, Max] bps.
	MinSlippageBps float64
	MaxSlippageBps float64
	FeeBps         float64
	// Seed makes a session's simulated fills reproducible.
	Seed int64
}

// PaperAdapter simulates order execution with full fills, random adverse
// slippage and flat fees. It keeps a single net position with average-cost
// accounting. No order-book matching, partial fills or rejections are
// modeled.
type PaperAdapter struct {
	cfg PaperConfig
	log *logger.Logger
	rng *rand.Rand

	mu       sync.Mutex
	balance  float64
	qty      float64 // signed base quantity, positive long
	avgEntry float64
	mark     float64
	realized float64
}

func NewPaperAdapter(cfg PaperConfig, log *logger.Logger) *PaperAdapter {
	return &PaperAdapter{
		cfg:     cfg,
		log:     log,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		balance: cfg.StartingBalanceUSD,
	}
}

// UpdateMark records the latest mid price used for taker fills and
// account valuation.
func (p *PaperAdapter) UpdateMark(price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if price > 0 {
		p.mark = price
	}
}

// Execute fills every child order in the plan immediately. Maker orders
// fill at their resting price, taker orders at the mark plus slippage.
func (p *PaperAdapter) Execute(ctx context.Context, plan *models.ExecutionPlan) ([]models.Fill, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fills := make([]models.Fill, 0, len(plan.Orders))
	for _, order := range plan.Orders {
		if err := ctx.Err(); err != nil {
			return fills, err
		}
		if order.NotionalUSD <= 0 {
			continue
		}

		ref := order.Price
		if ref <= 0 {
			ref = p.mark
		}
		if ref <= 0 {
			continue
		}

		slip := p.cfg.MinSlippageBps +
			p.rng.Float64()*(p.cfg.MaxSlippageBps-p.cfg.MinSlippageBps)
		price := ref * (1 + slip/10000)
		side := models.SideBuy
		if order.Direction == models.DirectionShort {
			price = ref * (1 - slip/10000)
			side = models.SideSell
		}

		size := order.NotionalUSD / price
		fee := order.NotionalUSD * p.cfg.FeeBps / 10000
		p.applyFill(side, price, size, fee)

		fills = append(fills, models.Fill{
			Timestamp: plan.Timestamp.Add(order.Offset),
			OrderID:   uuid.NewString(),
			Price:     price,
			Size:      size,
			FeeUSD:    fee,
			Side:      side,
		})
	}

	if len(fills) > 0 {
		p.log.Info("paper fills",
			logger.Int("count", len(fills)),
			logger.Float64("balance_usd", p.balance),
			logger.Float64("position_qty", p.qty),
		)
	}
	return fills, nil
}

// Account values the current state at the given mark price.
func (p *PaperAdapter) Account(price float64) models.AccountState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if price <= 0 {
		price = p.mark
	}
	var unrealized float64
	if p.qty != 0 && price > 0 {
		unrealized = p.qty * (price - p.avgEntry)
	}
	return models.AccountState{
		BalanceUSD:          p.balance,
		PositionNotionalUSD: math.Abs(p.qty) * price,
		UnrealizedPnLUSD:    unrealized,
	}
}

// RealizedPnL returns the cumulative realized P&L net of fees.
func (p *PaperAdapter) RealizedPnL() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.realized
}

// applyFill folds one fill into the net position with average-cost
// accounting. Caller holds the lock.
func (p *PaperAdapter) applyFill(side models.Side, price, size, fee float64) {
	delta := size
	if side == models.SideSell {
		delta = -size
	}

	switch {
	case p.qty == 0 || (p.qty > 0) == (delta > 0):
		// Opening or adding: blend the entry price.
		total := p.qty + delta
		p.avgEntry = (p.avgEntry*math.Abs(p.qty) + price*math.Abs(delta)) / math.Abs(total)
		p.qty = total
	case math.Abs(delta) <= math.Abs(p.qty):
		// Reducing or closing.
		closed := math.Abs(delta)
		pnl := closed * (price - p.avgEntry)
		if p.qty < 0 {
			pnl = -pnl
		}
		p.realized += pnl
		p.balance += pnl
		p.qty += delta
		if p.qty == 0 {
			p.avgEntry = 0
		}
	default:
		// Flipping through zero.
		closed := math.Abs(p.qty)
		pnl := closed * (price - p.avgEntry)
		if p.qty < 0 {
			pnl = -pnl
		}
		p.realized += pnl
		p.balance += pnl
		p.qty += delta
		p.avgEntry = price
	}

	p.balance -= fee
	p.realized -= fee
}
