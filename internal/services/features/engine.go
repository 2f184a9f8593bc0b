package features

import (
	"time"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

// Config holds the tunables for feature extraction.
type Config struct {
	// ImpactSizeUSD is the probe notional used for impact estimation.
	ImpactSizeUSD float64
	// Depth is how many book levels per side feed the depth features.
	Depth int
	// AggregationSpan is the tape lookback for trade features.
	AggregationSpan time.Duration
	// TapeWindow bounds how long trades are retained.
	TapeWindow time.Duration
}

// Engine extracts a FeatureVector from each MarketSnapshot. It keeps a
// trade tape and the previous tick's depth figures so churn and message
// rate can be derived; everything else is computed fresh per snapshot.
type Engine struct {
	cfg  Config
	log  *logger.Logger
	tape *TradeTape

	lastDepthBid float64
	lastDepthAsk float64
	lastTs       time.Time
}

func NewEngine(cfg Config, log *logger.Logger) *Engine {
	if cfg.Depth <= 0 {
		cfg.Depth = 20
	}
	if cfg.AggregationSpan <= 0 {
		cfg.AggregationSpan = time.Minute
	}
	return &Engine{
		cfg:  cfg,
		log:  log,
		tape: NewTradeTape(cfg.TapeWindow),
	}
}

// Compute folds the snapshot's trades into the tape and returns the
// feature vector for this tick.
func (e *Engine) Compute(snap models.MarketSnapshot) models.FeatureVector {
	e.tape.Add(snap.Timestamp, snap.Trades...)

	if len(snap.Bids) == 0 || len(snap.Asks) == 0 {
		e.log.Warn("empty orderbook",
			logger.Time("ts", snap.Timestamp),
			logger.String("symbol", snap.Symbol),
		)
		return e.emptyFeatures(snap.Timestamp)
	}

	mid := snap.Mid()
	spread := snap.Spread()

	topBid := snap.Bids[0]
	topAsk := snap.Asks[0]

	levels := e.cfg.Depth
	if len(snap.Bids) < levels {
		levels = len(snap.Bids)
	}
	if len(snap.Asks) < levels {
		levels = len(snap.Asks)
	}
	bids := snap.Bids[:levels]
	asks := snap.Asks[:levels]

	var depthBid, depthAsk float64
	for _, lvl := range bids {
		depthBid += lvl.NotionalUSD()
	}
	for _, lvl := range asks {
		depthAsk += lvl.NotionalUSD()
	}

	depthImb := (depthBid - depthAsk) / (depthBid + depthAsk + 1e-9)

	// Microprice weights each side's best price by the opposite size.
	micro := (topAsk.Price*topBid.Size + topBid.Price*topAsk.Size) /
		(topBid.Size + topAsk.Size + 1e-9)

	var msgRate float64
	if !e.lastTs.IsZero() {
		if elapsed := snap.Timestamp.Sub(e.lastTs).Seconds(); elapsed > 0 {
			msgRate = float64(snap.MsgCount) / elapsed
		}
	}

	churn := abs(depthBid-e.lastDepthBid) + abs(depthAsk-e.lastDepthAsk)
	e.lastDepthBid = depthBid
	e.lastDepthAsk = depthAsk
	e.lastTs = snap.Timestamp

	agg := e.tape.Aggregate(snap.Timestamp, e.cfg.AggregationSpan)

	return models.FeatureVector{
		Timestamp:     snap.Timestamp,
		Mid:           mid,
		Spread:        spread,
		SpreadBps:     snap.SpreadBps(),
		TopBidSize:    topBid.Size,
		TopAskSize:    topAsk.Size,
		DepthBidUSD:   depthBid,
		DepthAskUSD:   depthAsk,
		DepthImb:      depthImb,
		MicroMinusMid: micro - mid,
		ImpactBuyBps:  EstimateImpactBps(asks, models.SideBuy, e.cfg.ImpactSizeUSD, mid),
		ImpactSellBps: EstimateImpactBps(bids, models.SideSell, e.cfg.ImpactSizeUSD, mid),
		MsgRate:       msgRate,
		Churn:         churn,
		Volume:        agg.Volume,
		Trades:        agg.Trades,
		AvgTrade:      agg.AvgTrade,
		MaxTrade:      agg.MaxTrade,
		SignedImb:     agg.SignedImbalance,
		Toxic:         agg.ToxicScore(),
	}
}

// Tape exposes the engine's trade tape for read-only aggregation.
func (e *Engine) Tape() *TradeTape { return e.tape }

// Reset clears cross-tick state. Used at session start.
func (e *Engine) Reset() {
	e.tape.Reset()
	e.lastDepthBid = 0
	e.lastDepthAsk = 0
	e.lastTs = time.Time{}
}

func (e *Engine) emptyFeatures(ts time.Time) models.FeatureVector {
	return models.FeatureVector{
		Timestamp: ts,
		// No liquidity at all: impact is unfillable, not zero.
		ImpactBuyBps:  ImpactUnfillable,
		ImpactSellBps: ImpactUnfillable,
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
