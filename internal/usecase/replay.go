package usecase

import (
	"fmt"

	"ToxicTide/internal/domain/models"
	"ToxicTide/internal/services/analytics"
	"ToxicTide/pkg/logger"
)

// Mismatch is one divergence between a recorded decision and its replay.
type Mismatch struct {
	Seq   uint64
	Field string
	Want  string
	Got   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("seq %d %s: recorded %q, replayed %q", m.Seq, m.Field, m.Want, m.Got)
}

// ReplayResult summarizes one replay run.
type ReplayResult struct {
	Ticks      int
	Mismatches []Mismatch
}

// Deterministic reports whether the replay reproduced every decision.
func (r ReplayResult) Deterministic() bool {
	return len(r.Mismatches) == 0
}

// Replayer re-runs the decision chain from recorded snapshots against a
// fresh pipeline built with the same configuration. Nothing is executed
// and nothing is written; account state and realized PnL come from the
// records so the risk counters evolve exactly as they did live.
type Replayer struct {
	p   Pipeline
	log *logger.Logger
}

func NewReplayer(p Pipeline, log *logger.Logger) *Replayer {
	return &Replayer{p: p, log: log}
}

// Replay verifies each record against the freshly computed chain.
func (r *Replayer) Replay(records []*models.LedgerRecord) ReplayResult {
	var result ReplayResult
	for _, rec := range records {
		if rec.Snapshot == nil {
			result.Mismatches = append(result.Mismatches, Mismatch{
				Seq: rec.Seq, Field: "snapshot", Want: "present", Got: "nil",
			})
			continue
		}
		result.Ticks++
		r.replayTick(rec, &result)
	}

	r.log.Info("replay finished",
		logger.Int("ticks", result.Ticks),
		logger.Int("mismatches", len(result.Mismatches)),
	)
	return result
}

func (r *Replayer) replayTick(rec *models.LedgerRecord, result *ReplayResult) {
	snap := rec.Snapshot
	fv := r.p.Features.Compute(*snap)
	oadRep := r.p.OAD.Detect(fv)
	vadRep := r.p.VAD.Detect(fv)
	stress := analytics.ComputeStress(oadRep, vadRep)
	regimeState := r.p.Regime.Classify(fv)

	check := func(field, want, got string) {
		if want != got {
			result.Mismatches = append(result.Mismatches, Mismatch{
				Seq: rec.Seq, Field: field, Want: want, Got: got,
			})
		}
	}

	if rec.Stress != nil {
		check("stress.level", string(rec.Stress.Level), string(stress.Level))
	}
	if rec.Regime != nil {
		check("regime.trend", string(rec.Regime.Trend), string(regimeState.Trend))
		check("regime.vol", string(rec.Regime.Vol), string(regimeState.Vol))
		check("regime.flow", string(rec.Regime.Flow), string(regimeState.Flow))
	}

	// Exits ran before the decision segment live, so the risk counters
	// must advance in the same order here.
	r.applyCloses(rec)

	if rec.Paused {
		return
	}

	intent := r.p.Strategy.Generate(fv, regimeState, stress)
	check("intent", intentKey(rec.Intent), intentKey(intent))

	var account models.AccountState
	if rec.Account != nil {
		account = *rec.Account
	}
	decision := r.p.Guardian.Assess(
		snap.Timestamp, intent, fv, stress, account, impactFn(snap, fv.Mid),
	)
	if rec.Risk != nil {
		check("risk.outcome", string(rec.Risk.Outcome), string(decision.Outcome))
		check("risk.notional",
			fmt.Sprintf("%.2f", rec.Risk.AdjustedNotionalUSD),
			fmt.Sprintf("%.2f", decision.AdjustedNotionalUSD),
		)
	}

	plan := r.p.Planner.Plan(decision, intent, fv)
	if rec.Plan != nil {
		check("plan.mode", string(rec.Plan.Mode), string(plan.Mode))
		check("plan.orders",
			fmt.Sprintf("%d", len(rec.Plan.Orders)),
			fmt.Sprintf("%d", len(plan.Orders)),
		)
	}
}

// applyCloses feeds recorded position exits into the risk counters so
// cooldown and daily-loss state track the live session.
func (r *Replayer) applyCloses(rec *models.LedgerRecord) {
	for _, pos := range rec.Closed {
		r.p.Guardian.RecordTrade(rec.Timestamp, pos.RealizedPnL)
	}
}

func intentKey(intent *models.TradeIntent) string {
	if intent == nil {
		return "none"
	}
	return fmt.Sprintf("%s/%s", intent.Strategy, intent.Direction)
}
