package position

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

// Manager tracks every position opened during the session, open and
// closed. It is safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	positions map[string]*models.Position
	order     []string // insertion order for deterministic iteration
	log       *logger.Logger
}

func NewManager(log *logger.Logger) *Manager {
	return &Manager{
		positions: make(map[string]*models.Position),
		log:       log,
	}
}

// Open records a new position from an approved intent and its fills. The
// entry price is the size-weighted fill price; with no fills the intent's
// entry price stands in.
func (m *Manager) Open(intent *models.TradeIntent, fills []models.Fill, notionalUSD float64) *models.Position {
	avgPrice := intent.EntryPrice
	var totalSize float64
	if len(fills) > 0 {
		var cost float64
		for _, f := range fills {
			cost += f.Price * f.Size
			totalSize += f.Size
		}
		if totalSize > 0 {
			avgPrice = cost / totalSize
		}
	}
	if totalSize == 0 && avgPrice > 0 {
		totalSize = notionalUSD / avgPrice
	}

	pos := &models.Position{
		ID:          uuid.NewString(),
		Direction:   intent.Direction,
		EntryPrice:  avgPrice,
		EntryTime:   intent.Timestamp,
		Size:        totalSize,
		NotionalUSD: notionalUSD,
		StopPrice:   intent.StopPrice,
		TakeProfit:  intent.TakeProfit,
		Strategy:    intent.Strategy,
		TTL:         intent.TTL,
		Open:        true,
	}

	m.mu.Lock()
	m.positions[pos.ID] = pos
	m.order = append(m.order, pos.ID)
	m.mu.Unlock()

	m.log.Info("position opened",
		logger.String("id", pos.ID),
		logger.String("direction", string(pos.Direction)),
		logger.String("strategy", pos.Strategy),
		logger.Float64("entry", pos.EntryPrice),
		logger.Float64("notional_usd", pos.NotionalUSD),
		logger.Float64("stop", pos.StopPrice),
	)
	return pos
}

// Get returns the position by ID, or nil.
func (m *Manager) Get(id string) *models.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.positions[id]
}

// Active returns all open positions in insertion order.
func (m *Manager) Active() []*models.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Position, 0, len(m.order))
	for _, id := range m.order {
		if p := m.positions[id]; p != nil && p.Open {
			out = append(out, p)
		}
	}
	return out
}

// Close exits the position at the given price. Returns nil if the ID is
// unknown or the position is already closed.
func (m *Manager) Close(id string, price float64, at time.Time, cause models.CloseReason) *models.Position {
	m.mu.Lock()
	pos := m.positions[id]
	if pos == nil || !pos.Open {
		m.mu.Unlock()
		m.log.Warn("close on missing or closed position", logger.String("id", id))
		return nil
	}
	pos.Close(price, at, cause)
	m.mu.Unlock()

	m.log.Info("position closed",
		logger.String("id", id),
		logger.String("cause", string(cause)),
		logger.Float64("entry", pos.EntryPrice),
		logger.Float64("close", price),
		logger.Float64("pnl", pos.RealizedPnL),
	)
	return pos
}

// TotalExposureUSD sums the notional of all open positions.
func (m *Manager) TotalExposureUSD() float64 {
	var total float64
	for _, p := range m.Active() {
		total += p.NotionalUSD
	}
	return total
}

// UnrealizedPnL values all open positions at the given price.
func (m *Manager) UnrealizedPnL(price float64) float64 {
	var total float64
	for _, p := range m.Active() {
		total += p.UnrealizedPnL(price)
	}
	return total
}

// Stats summarizes the session's trading outcomes.
type Stats struct {
	Total          int     `json:"total"`
	Active         int     `json:"active"`
	Closed         int     `json:"closed"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRate        float64 `json:"win_rate"`
	RealizedPnLUSD float64 `json:"realized_pnl_usd"`
}

// Statistics computes win/loss counts over closed positions.
func (m *Manager) Statistics() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s Stats
	s.Total = len(m.positions)
	for _, p := range m.positions {
		if p.Open {
			s.Active++
			continue
		}
		s.Closed++
		s.RealizedPnLUSD += p.RealizedPnL
		if p.RealizedPnL > 0 {
			s.Wins++
		} else {
			s.Losses++
		}
	}
	if s.Closed > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Closed)
	}
	return s
}
