package execution

import (
	"time"

	"github.com/shopspring/decimal"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

// Plan reason tags.
const (
	ReasonRiskDenied     = "RISK_DENIED"
	ReasonNoSignal       = "NO_SIGNAL"
	ReasonToxicTakerOnly = "TOXIC_TAKER_ONLY"
	ReasonImpactSlicing  = "HIGH_IMPACT_SLICING"
	ReasonNormalMaker    = "NORMAL_MAKER"
)

// Config holds the planner policy thresholds.
type Config struct {
	// TakerToxicThreshold switches to taker-only execution.
	TakerToxicThreshold float64
	// SlicingThresholdBps switches to sliced execution.
	SlicingThresholdBps float64
	SliceCount          int
	SliceInterval       time.Duration
}

// Planner turns an approved RiskDecision into a concrete order plan. The
// policy runs in a fixed order: toxic flow forces taker-only fills before
// anything else, high impact amortizes the notional over timed slices,
// and a quiet book rests a single maker order. The planner is stateless
// and re-entrant; each tick plans from scratch.
type Planner struct {
	cfg Config
	log *logger.Logger
}

func NewPlanner(cfg Config, log *logger.Logger) *Planner {
	if cfg.SliceCount <= 0 {
		cfg.SliceCount = 5
	}
	if cfg.SliceInterval <= 0 {
		cfg.SliceInterval = 10 * time.Second
	}
	return &Planner{cfg: cfg, log: log}
}

// Plan builds the execution plan for one tick. A DENY decision or a
// missing intent yields an empty reduce-only plan.
func (p *Planner) Plan(
	risk models.RiskDecision,
	intent *models.TradeIntent,
	fv models.FeatureVector,
) models.ExecutionPlan {
	if risk.Denied() || intent == nil {
		reason := ReasonRiskDenied
		if intent == nil {
			reason = ReasonNoSignal
		}
		return models.ExecutionPlan{
			Timestamp: risk.Timestamp,
			Mode:      models.PlanModeReduceOnly,
			Reasons:   []string{reason},
		}
	}

	notional := risk.AdjustedNotionalUSD
	impact := fv.ImpactBuyBps
	if intent.Direction == models.DirectionShort {
		impact = fv.ImpactSellBps
	}

	switch {
	case fv.Toxic >= p.cfg.TakerToxicThreshold:
		return p.takerPlan(risk, intent, notional)
	case impact >= p.cfg.SlicingThresholdBps:
		return p.slicedPlan(risk, intent, notional)
	default:
		return p.makerPlan(risk, intent, notional)
	}
}

// takerPlan crosses the spread in one order for the fastest possible fill.
func (p *Planner) takerPlan(risk models.RiskDecision, intent *models.TradeIntent, notional float64) models.ExecutionPlan {
	p.log.Info("plan: taker only",
		logger.Float64("notional_usd", notional),
	)
	return models.ExecutionPlan{
		Timestamp: risk.Timestamp,
		Mode:      models.PlanModeTaker,
		Orders: []models.ChildOrder{{
			Type:        models.OrderTaker,
			Direction:   intent.Direction,
			NotionalUSD: notional,
		}},
		TotalNotionalUSD: notional,
		Reasons:          []string{ReasonToxicTakerOnly},
	}
}

// slicedPlan splits the notional into equal timed child orders. Cent
// rounding would leak value over N-1 equal slices, so the remainder is
// folded into the last slice and the orders always sum exactly to the
// approved notional.
func (p *Planner) slicedPlan(risk models.RiskDecision, intent *models.TradeIntent, notional float64) models.ExecutionPlan {
	n := p.cfg.SliceCount
	total := decimal.NewFromFloat(notional)
	slice := total.Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	last := total.Sub(slice.Mul(decimal.NewFromInt(int64(n - 1))))

	orders := make([]models.ChildOrder, 0, n)
	for i := 0; i < n; i++ {
		size := slice
		if i == n-1 {
			size = last
		}
		orders = append(orders, models.ChildOrder{
			Type:        models.OrderMaker,
			Direction:   intent.Direction,
			Price:       intent.EntryPrice,
			NotionalUSD: size.InexactFloat64(),
			Offset:      time.Duration(i) * p.cfg.SliceInterval,
		})
	}

	p.log.Info("plan: sliced",
		logger.Int("slices", n),
		logger.Float64("notional_usd", notional),
	)
	return models.ExecutionPlan{
		Timestamp:        risk.Timestamp,
		Mode:             models.PlanModeSliced,
		Orders:           orders,
		TotalNotionalUSD: notional,
		Reasons:          []string{ReasonImpactSlicing},
	}
}

// makerPlan rests the full notional at the entry price.
func (p *Planner) makerPlan(risk models.RiskDecision, intent *models.TradeIntent, notional float64) models.ExecutionPlan {
	p.log.Info("plan: maker",
		logger.Float64("notional_usd", notional),
		logger.Float64("price", intent.EntryPrice),
	)
	return models.ExecutionPlan{
		Timestamp: risk.Timestamp,
		Mode:      models.PlanModeMaker,
		Orders: []models.ChildOrder{{
			Type:        models.OrderMaker,
			Direction:   intent.Direction,
			Price:       intent.EntryPrice,
			NotionalUSD: notional,
		}},
		TotalNotionalUSD: notional,
		Reasons:          []string{ReasonNormalMaker},
	}
}
