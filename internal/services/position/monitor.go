package position

import (
	"time"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

// Exit marks one position due for closing.
type Exit struct {
	PositionID string
	Cause      models.CloseReason
	Price      float64
}

// Monitor checks open positions against their exit conditions each tick.
// Stop loss outranks take profit, which outranks TTL expiry.
type Monitor struct {
	mgr *Manager
	log *logger.Logger
}

func NewMonitor(mgr *Manager, log *logger.Logger) *Monitor {
	return &Monitor{mgr: mgr, log: log}
}

// Check returns the exits triggered at the given price and time. Times come
// from the tick snapshot so replays see identical expiries.
func (m *Monitor) Check(price float64, now time.Time) []Exit {
	var exits []Exit
	for _, pos := range m.mgr.Active() {
		switch {
		case stopHit(pos, price):
			m.log.Warn("stop loss triggered",
				logger.String("id", pos.ID),
				logger.Float64("stop", pos.StopPrice),
				logger.Float64("price", price),
			)
			exits = append(exits, Exit{pos.ID, models.CloseStopLoss, price})
		case takeProfitHit(pos, price):
			m.log.Info("take profit triggered",
				logger.String("id", pos.ID),
				logger.Float64("tp", pos.TakeProfit),
				logger.Float64("price", price),
			)
			exits = append(exits, Exit{pos.ID, models.CloseTakeProfit, price})
		case expired(pos, now):
			m.log.Info("position ttl expired",
				logger.String("id", pos.ID),
				logger.Duration("held", now.Sub(pos.EntryTime)),
			)
			exits = append(exits, Exit{pos.ID, models.CloseExpired, price})
		}
	}
	return exits
}

func stopHit(pos *models.Position, price float64) bool {
	if pos.Direction == models.DirectionLong {
		return price <= pos.StopPrice
	}
	return price >= pos.StopPrice
}

func takeProfitHit(pos *models.Position, price float64) bool {
	if pos.TakeProfit == 0 {
		return false
	}
	if pos.Direction == models.DirectionLong {
		return price >= pos.TakeProfit
	}
	return price <= pos.TakeProfit
}

func expired(pos *models.Position, now time.Time) bool {
	if pos.TTL <= 0 {
		return false
	}
	return now.Sub(pos.EntryTime) >= pos.TTL
}
