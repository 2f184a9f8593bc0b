package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ToxicTide/internal/bus"
	"ToxicTide/internal/domain/models"
	"ToxicTide/internal/domain/repository"
	"ToxicTide/internal/explain"
	"ToxicTide/internal/services/analytics"
	"ToxicTide/internal/services/execution"
	"ToxicTide/internal/services/features"
	"ToxicTide/internal/services/position"
	"ToxicTide/internal/services/regime"
	"ToxicTide/internal/services/risk"
	"ToxicTide/internal/services/strategy"
	"ToxicTide/pkg/logger"
)

// Pipeline bundles the per-tick decision stages. All stages are driven by
// snapshot timestamps, never the wall clock, so the same snapshots always
// reproduce the same decisions.
type Pipeline struct {
	Features *features.Engine
	OAD      *analytics.OrderbookDetector
	VAD      *analytics.VolumeDetector
	Regime   *regime.Classifier
	Strategy *strategy.Engine
	Guardian *risk.Guardian
	Planner  *execution.Planner
}

// Deps wires the orchestrator's collaborators. Publisher, Storage and Bus
// are optional.
type Deps struct {
	Feed      repository.MarketFeed
	Adapter   repository.ExecutionAdapter
	Positions *position.Manager
	Monitor   *position.Monitor
	Ledger    repository.LedgerSink
	Publisher repository.RecordPublisher
	Storage   repository.RecordStorage
	Metrics   repository.Metrics
	Bus       *bus.Bus
}

// Orchestrator runs the tick loop: snapshot, features, detectors, regime,
// signal, risk, plan, execute, record. Pausing suspends only the
// signal-to-plan segment; data collection and detection keep running so
// the anomaly windows stay warm.
type Orchestrator struct {
	cfg TickConfig
	p   Pipeline
	d   Deps
	log *logger.Logger

	mu          sync.RWMutex
	paused      bool
	pauseReason string
	last        *models.LedgerRecord
	signals     int
	allows      int
	reductions  int
	denies      int
}

// TickConfig holds loop-level settings.
type TickConfig struct {
	Interval time.Duration
}

func NewOrchestrator(cfg TickConfig, p Pipeline, d Deps, log *logger.Logger) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Orchestrator{cfg: cfg, p: p, d: d, log: log}
}

// Run drives Tick at the configured interval until the context ends.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	o.log.Info("orchestrator started",
		logger.Duration("interval", o.cfg.Interval),
	)
	for {
		select {
		case <-ctx.Done():
			o.log.Info("orchestrator stopped", logger.String("summary", o.Summary()))
			return ctx.Err()
		case <-ticker.C:
			if err := o.Tick(ctx); err != nil {
				o.log.Error("tick failed", logger.Error(err))
			}
		}
	}
}

// Tick runs one full decision cycle.
func (o *Orchestrator) Tick(ctx context.Context) error {
	started := time.Now()

	snap, err := o.d.Feed.Snapshot(ctx)
	if err != nil {
		o.recordError("feed")
		return fmt.Errorf("snapshot: %w", err)
	}
	o.publish(bus.TopicMarketBook, snap)
	if len(snap.Trades) > 0 {
		o.publish(bus.TopicMarketTrades, snap.Trades)
	}

	// Detection keeps running even while paused.
	fv := o.p.Features.Compute(*snap)
	oadRep := o.p.OAD.Detect(fv)
	vadRep := o.p.VAD.Detect(fv)
	stress := analytics.ComputeStress(oadRep, vadRep)
	regimeState := o.p.Regime.Classify(fv)

	o.publish(bus.TopicFeatures, fv)
	o.publish(bus.TopicOAD, oadRep)
	o.publish(bus.TopicVAD, vadRep)
	o.publish(bus.TopicStress, stress)
	o.publish(bus.TopicRegime, regimeState)

	if o.d.Metrics != nil {
		o.d.Metrics.RecordMid(fv.Mid)
		o.d.Metrics.RecordAnomaly(oadRep.Detector, string(oadRep.Level))
		o.d.Metrics.RecordAnomaly(vadRep.Detector, string(vadRep.Level))
	}

	if m, ok := o.d.Adapter.(interface{ UpdateMark(float64) }); ok {
		m.UpdateMark(fv.Mid)
	}

	closed := o.closeTriggered(ctx, fv.Mid, snap.Timestamp)

	record := &models.LedgerRecord{
		Timestamp: snap.Timestamp,
		Snapshot:  snap,
		Features:  &fv,
		OAD:       &oadRep,
		VAD:       &vadRep,
		Stress:    &stress,
		Regime:    &regimeState,
		Closed:    closed,
	}

	// The recorded account is the state the risk checks saw, captured
	// after exits and before this tick's entries.
	acct := o.d.Adapter.Account(fv.Mid)
	record.Account = &acct
	o.publish(bus.TopicAccount, acct)

	if reason, paused := o.pauseState(); paused {
		record.Paused = true
		record.Explain = "pipeline paused: " + reason
	} else {
		o.decide(ctx, snap, fv, stress, regimeState, acct, record)
	}

	if err := o.d.Ledger.Append(record); err != nil {
		// A broken audit trail is a fatal fault: trading stops until an
		// operator intervenes, but observation continues.
		o.recordError("ledger")
		o.Pause("ledger append failed: " + err.Error())
		return fmt.Errorf("ledger append: %w", err)
	}
	o.publish(bus.TopicLedger, record)
	o.forward(ctx, record)

	o.mu.Lock()
	o.last = record
	o.mu.Unlock()

	if o.d.Metrics != nil {
		o.d.Metrics.RecordTickDuration(time.Since(started).Seconds())
	}
	return nil
}

// decide runs the signal-to-plan segment for one tick.
func (o *Orchestrator) decide(
	ctx context.Context,
	snap *models.MarketSnapshot,
	fv models.FeatureVector,
	stress models.StressIndex,
	regimeState models.RegimeState,
	account models.AccountState,
	record *models.LedgerRecord,
) {
	intent := o.p.Strategy.Generate(fv, regimeState, stress)
	record.Intent = intent
	if intent != nil {
		o.mu.Lock()
		o.signals++
		o.mu.Unlock()
		o.publish(bus.TopicSignal, intent)
	}

	decision := o.p.Guardian.Assess(
		snap.Timestamp, intent, fv, stress, account, impactFn(snap, fv.Mid),
	)
	record.Risk = &decision
	o.publish(bus.TopicRisk, decision)
	o.countOutcome(decision.Outcome)
	if o.d.Metrics != nil {
		o.d.Metrics.RecordDecision(string(decision.Outcome))
	}

	plan := o.p.Planner.Plan(decision, intent, fv)
	record.Plan = &plan
	o.publish(bus.TopicPlan, plan)
	if o.d.Metrics != nil {
		o.d.Metrics.RecordPlan(string(plan.Mode))
	}

	if len(plan.Orders) > 0 {
		fills, err := o.d.Adapter.Execute(ctx, &plan)
		if err != nil {
			o.recordError("adapter")
			o.Pause("execution adapter failed: " + err.Error())
			record.Explain = explain.Tick(intent, &decision, &plan) +
				"\nexecution failed: " + err.Error()
			return
		}
		record.Fills = fills
		if len(fills) > 0 {
			o.publish(bus.TopicFill, fills)
			if intent != nil {
				pos := o.d.Positions.Open(intent, fills, plan.TotalNotionalUSD)
				o.publish(bus.TopicPositions, pos)
			}
		}
	}

	record.Explain = explain.Tick(intent, &decision, &plan)
}

// closeTriggered exits positions whose stop, target or TTL fired, routes
// the closing orders through the adapter and feeds realized PnL back into
// the risk counters.
func (o *Orchestrator) closeTriggered(ctx context.Context, price float64, now time.Time) []models.Position {
	if o.d.Monitor == nil {
		return nil
	}
	exits := o.d.Monitor.Check(price, now)
	if len(exits) == 0 {
		return nil
	}

	var closed []models.Position
	for _, exit := range exits {
		pos := o.d.Positions.Close(exit.PositionID, exit.Price, now, exit.Cause)
		if pos == nil {
			continue
		}
		o.executeClose(ctx, pos, now)
		o.p.Guardian.RecordTrade(now, pos.RealizedPnL)
		closed = append(closed, *pos)
		o.publish(bus.TopicPositions, pos)
	}
	return closed
}

func (o *Orchestrator) executeClose(ctx context.Context, pos *models.Position, now time.Time) {
	dir := models.DirectionShort
	if pos.Direction == models.DirectionShort {
		dir = models.DirectionLong
	}
	plan := models.ExecutionPlan{
		Timestamp: now,
		Mode:      models.PlanModeReduceOnly,
		Orders: []models.ChildOrder{{
			Type:        models.OrderTaker,
			Direction:   dir,
			NotionalUSD: pos.Size * pos.ClosePrice,
			ReduceOnly:  true,
		}},
		TotalNotionalUSD: pos.Size * pos.ClosePrice,
		Reasons:          []string{string(pos.CloseCause)},
	}
	if _, err := o.d.Adapter.Execute(ctx, &plan); err != nil {
		o.recordError("adapter")
		o.log.Error("close execution failed",
			logger.String("position", pos.ID),
			logger.Error(err),
		)
	}
}

// impactFn estimates entry impact for an arbitrary notional against the
// tick's book, letting the risk checks converge a notional to the cap.
func impactFn(snap *models.MarketSnapshot, mid float64) risk.ImpactFn {
	return func(direction models.Direction, notionalUSD float64) float64 {
		if direction == models.DirectionShort {
			return features.EstimateImpactBps(snap.Bids, models.SideSell, notionalUSD, mid)
		}
		return features.EstimateImpactBps(snap.Asks, models.SideBuy, notionalUSD, mid)
	}
}

// forward ships the record to the optional external sinks. Failures are
// logged and counted, never fatal; the JSONL file is the source of truth.
func (o *Orchestrator) forward(ctx context.Context, record *models.LedgerRecord) {
	if o.d.Publisher != nil {
		if err := o.d.Publisher.Publish(ctx, record); err != nil {
			o.recordError("publisher")
		}
	}
	if o.d.Storage != nil {
		if err := o.d.Storage.Store(ctx, record); err != nil {
			o.recordError("storage")
		}
	}
}

// Pause suspends the signal-to-plan segment. Idempotent.
func (o *Orchestrator) Pause(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.paused {
		return
	}
	o.paused = true
	o.pauseReason = reason
	o.log.Warn("pipeline paused", logger.String("reason", reason))
}

// Resume re-enables trading.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.paused {
		return
	}
	o.paused = false
	o.pauseReason = ""
	o.log.Info("pipeline resumed")
}

// Paused reports the pause state and its reason.
func (o *Orchestrator) Paused() (string, bool) {
	return o.pauseState()
}

func (o *Orchestrator) pauseState() (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pauseReason, o.paused
}

// LastDecision returns the most recent ledger record, or nil before the
// first tick.
func (o *Orchestrator) LastDecision() *models.LedgerRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last
}

// Summary renders the session's decision counts.
func (o *Orchestrator) Summary() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return explain.Summary(o.signals, o.allows, o.reductions, o.denies)
}

func (o *Orchestrator) countOutcome(outcome models.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch outcome {
	case models.OutcomeAllow:
		o.allows++
	case models.OutcomeReductions:
		o.reductions++
	case models.OutcomeDeny:
		o.denies++
	}
}

func (o *Orchestrator) publish(topic string, payload any) {
	if o.d.Bus != nil {
		o.d.Bus.Publish(topic, payload)
	}
}

func (o *Orchestrator) recordError(kind string) {
	if o.d.Metrics != nil {
		o.d.Metrics.RecordError(kind)
	}
}
