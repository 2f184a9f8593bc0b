package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ToxicTide/internal/domain/models"
	"ToxicTide/internal/services/analytics"
	"ToxicTide/internal/services/execution"
	"ToxicTide/internal/services/features"
	"ToxicTide/internal/services/position"
	"ToxicTide/internal/services/regime"
	"ToxicTide/internal/services/risk"
	"ToxicTide/internal/services/strategy"
	"ToxicTide/pkg/logger"
)

var tickStart = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

// scriptedFeed replays a fixed snapshot sequence.
type scriptedFeed struct {
	snaps []*models.MarketSnapshot
	i     int
	err   error
}

func (f *scriptedFeed) Snapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.i >= len(f.snaps) {
		f.i = len(f.snaps) - 1
	}
	s := f.snaps[f.i]
	f.i++
	return s, nil
}

func (f *scriptedFeed) Close() error { return nil }

// memLedger collects records in memory.
type memLedger struct {
	records []*models.LedgerRecord
	seq     uint64
	fail    bool
}

func (l *memLedger) Append(record *models.LedgerRecord) error {
	if l.fail {
		return errors.New("disk full")
	}
	l.seq++
	record.Seq = l.seq
	l.records = append(l.records, record)
	return nil
}

func (l *memLedger) Close() error { return nil }

func bookSnapshot(ts time.Time, mid float64, msgCount int) *models.MarketSnapshot {
	var bids, asks []models.BookLevel
	for i := 0; i < 10; i++ {
		bids = append(bids, models.BookLevel{Price: mid - 0.05 - float64(i)*0.1, Size: 5})
		asks = append(asks, models.BookLevel{Price: mid + 0.05 + float64(i)*0.1, Size: 5})
	}
	return &models.MarketSnapshot{
		Timestamp: ts,
		Symbol:    "ETH-PERP",
		Bids:      bids,
		Asks:      asks,
		Trades: []models.Trade{
			{Timestamp: ts.Add(-500 * time.Millisecond), Price: mid, Size: 0.5, Side: models.SideBuy},
		},
		MsgCount: msgCount,
	}
}

func steadySnapshots(n int) []*models.MarketSnapshot {
	out := make([]*models.MarketSnapshot, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, bookSnapshot(tickStart.Add(time.Duration(i)*time.Second), 2000, 10))
	}
	return out
}

func newTestPipeline() Pipeline {
	nop := logger.Nop()

	strategyCfg := strategy.Config{
		Enabled:         []string{strategy.TrendBreakout, strategy.RangeMeanRevert},
		BaseNotionalUSD: 1000,
	}
	strategyCfg.Breakout.Lookback = 20
	strategyCfg.Breakout.BreakoutPct = 0.1
	strategyCfg.Breakout.StopPct = 0.5
	strategyCfg.Breakout.TakeProfitPct = 1.0
	strategyCfg.Breakout.Confidence = 0.7
	strategyCfg.Breakout.TTL = 5 * time.Minute
	strategyCfg.MeanRevert.Lookback = 30
	strategyCfg.MeanRevert.EntrySigma = 1.5
	strategyCfg.MeanRevert.StopPct = 0.2
	strategyCfg.MeanRevert.Confidence = 0.6
	strategyCfg.MeanRevert.TTL = 10 * time.Minute

	return Pipeline{
		Features: features.NewEngine(features.Config{
			ImpactSizeUSD:   1000,
			Depth:           10,
			AggregationSpan: time.Minute,
			TapeWindow:      5 * time.Minute,
		}, nop),
		OAD: analytics.NewOrderbookDetector(analytics.OADConfig{
			WindowSize: 240, MinSamples: 5,
			ZWarn: 4, ZDanger: 6,
			SpreadGrowthRatio: 3, LiquidityGapFrac: 0.5,
			ThinImpactBps: 10, ToxicImpactBps: 20, ToxicDangerRatio: 0.75,
		}, nop),
		VAD: analytics.NewVolumeDetector(analytics.VADConfig{
			WindowSize: 240, MinSamples: 5,
			ZWarn: 4, ZDanger: 6,
			ToxicWarn: 0.6, ToxicDanger: 0.75,
		}, nop),
		Regime: regime.NewClassifier(regime.Config{
			ShortWindow: 10, LongWindow: 30,
			TrendBandPct: 0.2,
			VolCalm:      0.2, VolExtreme: 0.5,
			FlowBand: 0.2,
		}, nop),
		Strategy: strategy.NewEngine(strategyCfg, nop),
		Guardian: risk.NewGuardian(risk.Config{
			MaxDailyLossPct:        1.0,
			MaxPositionNotionalUSD: 3000,
			MaxTradesPerHour:       6,
			ImpactEntryCapBps:      10,
			ImpactHardCapBps:       20,
			StalenessThreshold:     10 * time.Second,
			LossStreakLimit:        3,
			CooldownDuration:       5 * time.Minute,
			StressWarnFraction:     0.5,
			MaxSlippageCapBps:      15,
			ToxicWarn:              0.6,
			ToxicDanger:            0.75,
		}, nop),
		Planner: execution.NewPlanner(execution.Config{
			TakerToxicThreshold: 0.6,
			SlicingThresholdBps: 10,
			SliceCount:          5,
			SliceInterval:       10 * time.Second,
		}, nop),
	}
}

func newTestOrchestrator(feed *scriptedFeed, ledger *memLedger) (*Orchestrator, *position.Manager) {
	nop := logger.Nop()
	mgr := position.NewManager(nop)
	adapter := execution.NewPaperAdapter(execution.PaperConfig{
		StartingBalanceUSD: 10000,
		MinSlippageBps:     1,
		MaxSlippageBps:     5,
		FeeBps:             2,
		Seed:               42,
	}, nop)

	o := NewOrchestrator(
		TickConfig{Interval: time.Second},
		newTestPipeline(),
		Deps{
			Feed:      feed,
			Adapter:   adapter,
			Positions: mgr,
			Monitor:   position.NewMonitor(mgr, nop),
			Ledger:    ledger,
		},
		nop,
	)
	return o, mgr
}

func TestTickRecordsFullChain(t *testing.T) {
	feed := &scriptedFeed{snaps: steadySnapshots(3)}
	ledger := &memLedger{}
	o, _ := newTestOrchestrator(feed, ledger)

	if o.LastDecision() != nil {
		t.Fatal("decision present before first tick")
	}
	if err := o.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if len(ledger.records) != 1 {
		t.Fatalf("ledger has %d records, want 1", len(ledger.records))
	}
	rec := ledger.records[0]
	if rec.Snapshot == nil || rec.Features == nil || rec.OAD == nil ||
		rec.VAD == nil || rec.Stress == nil || rec.Regime == nil ||
		rec.Risk == nil || rec.Plan == nil || rec.Account == nil {
		t.Fatalf("incomplete record: %+v", rec)
	}
	if rec.Explain == "" {
		t.Fatal("record has no explanation")
	}
	if o.LastDecision() != rec {
		t.Fatal("LastDecision does not return the latest record")
	}
	// A 5-sample warmup means the first tick reports insufficient data.
	if !rec.Stress.Insufficient {
		t.Fatal("first tick stress not flagged insufficient")
	}
}

func TestPauseSuspendsOnlyDecisionSegment(t *testing.T) {
	feed := &scriptedFeed{snaps: steadySnapshots(10)}
	ledger := &memLedger{}
	o, _ := newTestOrchestrator(feed, ledger)

	o.Pause("operator")
	if reason, paused := o.Paused(); !paused || reason != "operator" {
		t.Fatalf("paused = %v %q", paused, reason)
	}

	if err := o.Tick(context.Background()); err != nil {
		t.Fatalf("Tick while paused: %v", err)
	}
	rec := ledger.records[0]
	if !rec.Paused {
		t.Fatal("record not marked paused")
	}
	if rec.Risk != nil || rec.Plan != nil || rec.Intent != nil {
		t.Fatal("paused tick still produced a decision")
	}
	// Detection keeps running while paused.
	if rec.Features == nil || rec.OAD == nil || rec.Stress == nil {
		t.Fatal("paused tick dropped detection outputs")
	}

	o.Resume()
	if err := o.Tick(context.Background()); err != nil {
		t.Fatalf("Tick after resume: %v", err)
	}
	if ledger.records[1].Risk == nil {
		t.Fatal("resumed tick produced no decision")
	}
}

func TestFeedErrorReturnsError(t *testing.T) {
	feed := &scriptedFeed{err: errors.New("socket closed")}
	o, _ := newTestOrchestrator(feed, &memLedger{})

	if err := o.Tick(context.Background()); err == nil {
		t.Fatal("Tick with broken feed did not error")
	}
}

func TestLedgerFailureForcesPause(t *testing.T) {
	feed := &scriptedFeed{snaps: steadySnapshots(3)}
	ledger := &memLedger{fail: true}
	o, _ := newTestOrchestrator(feed, ledger)

	if err := o.Tick(context.Background()); err == nil {
		t.Fatal("Tick with broken ledger did not error")
	}
	if _, paused := o.Paused(); !paused {
		t.Fatal("broken audit trail did not pause trading")
	}
}

func TestPositionExitRecordsClose(t *testing.T) {
	feed := &scriptedFeed{snaps: steadySnapshots(3)}
	ledger := &memLedger{}
	o, mgr := newTestOrchestrator(feed, ledger)

	// Seed an open long whose stop sits above the scripted mid.
	mgr.Open(&models.TradeIntent{
		Timestamp:  tickStart.Add(-time.Minute),
		Direction:  models.DirectionLong,
		EntryPrice: 2010,
		StopPrice:  2005,
		Strategy:   "trend_breakout",
	}, nil, 1000)

	if err := o.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	rec := ledger.records[0]
	if len(rec.Closed) != 1 {
		t.Fatalf("recorded %d closes, want 1", len(rec.Closed))
	}
	if rec.Closed[0].CloseCause != models.CloseStopLoss {
		t.Fatalf("close cause = %s, want stop loss", rec.Closed[0].CloseCause)
	}
	if len(mgr.Active()) != 0 {
		t.Fatal("position still active after stop")
	}
	// The loss feeds the risk counters.
	if o.p.Guardian.Tilt().TotalTrades() != 1 {
		t.Fatal("realized loss not recorded in risk counters")
	}
}

func TestSummaryCountsDecisions(t *testing.T) {
	feed := &scriptedFeed{snaps: steadySnapshots(5)}
	o, _ := newTestOrchestrator(feed, &memLedger{})

	for i := 0; i < 5; i++ {
		if err := o.Tick(context.Background()); err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
	}
	if got := o.Summary(); got == "" {
		t.Fatal("empty summary")
	}
}
