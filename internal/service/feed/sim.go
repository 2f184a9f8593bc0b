// Package feed provides the market-data collaborators: a seeded simulator
// for paper sessions and a Binance futures WebSocket collector for live
// ones. Both normalize into MarketSnapshot; the rest of the pipeline never
// knows which one is running.
package feed

import (
	"context"
	"math"
	"math/rand"
	"time"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

// SimConfig tunes the simulated market.
type SimConfig struct {
	Symbol     string
	Seed       int64
	StartPrice float64
	// Volatility is the per-tick return stddev.
	Volatility float64
	SpreadBps  float64
	Levels     int
	TickSize   float64
	// Interval advances the simulated clock per snapshot.
	Interval time.Duration
	// Start anchors the simulated clock; zero means wall clock at first use.
	Start time.Time
}

// SimCollector generates a random-walk order book with a drifting trend
// and synthetic trade prints. The same seed reproduces the same market.
type SimCollector struct {
	cfg SimConfig
	rng *rand.Rand
	log *logger.Logger

	price   float64
	trend   float64
	seq     uint64
	clock   time.Time
	started bool
}

func NewSimCollector(cfg SimConfig, log *logger.Logger) *SimCollector {
	if cfg.StartPrice <= 0 {
		cfg.StartPrice = 2000
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = 0.0005
	}
	if cfg.SpreadBps <= 0 {
		cfg.SpreadBps = 5
	}
	if cfg.Levels <= 0 {
		cfg.Levels = 20
	}
	if cfg.TickSize <= 0 {
		cfg.TickSize = 0.01
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &SimCollector{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		log:   log,
		price: cfg.StartPrice,
	}
}

// Snapshot advances the simulated market one tick and returns its state.
func (s *SimCollector) Snapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.advanceClock()
	s.advancePrice()
	s.seq++

	mid := s.price
	half := mid * (s.cfg.SpreadBps / 10000) / 2
	bestBid := s.round(mid - half)
	bestAsk := s.round(mid + half)
	if bestAsk <= bestBid {
		bestAsk = bestBid + s.cfg.TickSize
	}

	bids := make([]models.BookLevel, 0, s.cfg.Levels)
	asks := make([]models.BookLevel, 0, s.cfg.Levels)
	for i := 0; i < s.cfg.Levels; i++ {
		step := s.cfg.TickSize * (1 + float64(i)*0.1) * float64(i)
		// Deeper levels carry more size, like a real book.
		base := 0.5 + s.rng.Float64()*2.5
		mult := 1 + float64(i)*0.2
		bids = append(bids, models.BookLevel{
			Price: s.round(bestBid - step),
			Size:  base * mult * (0.8 + s.rng.Float64()*0.4),
		})
		asks = append(asks, models.BookLevel{
			Price: s.round(bestAsk + step),
			Size:  (0.5 + s.rng.Float64()*2.5) * mult * (0.8 + s.rng.Float64()*0.4),
		})
	}

	return &models.MarketSnapshot{
		Timestamp: s.clock,
		Symbol:    s.cfg.Symbol,
		Seq:       s.seq,
		Bids:      bids,
		Asks:      asks,
		Trades:    s.trades(),
		MsgCount:  5 + s.rng.Intn(20),
	}, nil
}

func (s *SimCollector) Close() error { return nil }

func (s *SimCollector) advanceClock() {
	if !s.started {
		s.clock = s.cfg.Start
		if s.clock.IsZero() {
			s.clock = time.Now().UTC()
		}
		s.started = true
		return
	}
	s.clock = s.clock.Add(s.cfg.Interval)
}

func (s *SimCollector) advancePrice() {
	if s.rng.Float64() < 0.05 {
		s.trend = s.rng.Float64()*2 - 1
	}
	ret := s.rng.NormFloat64()*s.cfg.Volatility + s.trend*s.cfg.Volatility*0.5
	s.price *= 1 + ret
	// Keep the walk within a band around the start price.
	lo, hi := s.cfg.StartPrice*0.8, s.cfg.StartPrice*1.2
	s.price = math.Max(lo, math.Min(hi, s.price))
	s.price = s.round(s.price)
}

// trades emits the prints since the previous snapshot: mostly small lots,
// the occasional large one, with aggressor bias following the trend.
func (s *SimCollector) trades() []models.Trade {
	n := 1 + s.rng.Intn(8)
	out := make([]models.Trade, 0, n)
	span := s.cfg.Interval
	for i := 0; i < n; i++ {
		price := s.round(s.price + s.rng.NormFloat64()*s.price*0.0001)
		size := 0.01 + s.rng.Float64()*2
		if s.rng.Float64() < 0.05 {
			size = 5 + s.rng.Float64()*15
		}
		side := models.SideSell
		if s.rng.Float64() < 0.5+s.trend*0.1 {
			side = models.SideBuy
		}
		frac := float64(i+1) / float64(n+1)
		out = append(out, models.Trade{
			Timestamp: s.clock.Add(-span + time.Duration(float64(span)*frac)),
			Price:     price,
			Size:      size,
			Side:      side,
		})
	}
	return out
}

func (s *SimCollector) round(p float64) float64 {
	return math.Round(p/s.cfg.TickSize) * s.cfg.TickSize
}
