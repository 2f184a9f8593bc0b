package repository

import (
	"context"

	"ToxicTide/internal/domain/models"
)

// MarketFeed supplies one MarketSnapshot per tick. Implementations own
// connectivity; the core only sees normalized snapshots and treats staleness
// as a data-quality failure.
type MarketFeed interface {
	// Snapshot returns the current book state plus the trade prints observed
	// since the previous call.
	Snapshot(ctx context.Context) (*models.MarketSnapshot, error)
	Close() error
}

// ExecutionAdapter accepts an execution plan and reports fills. The core
// never inspects adapter internals; fills feed PnL accounting only.
type ExecutionAdapter interface {
	Execute(ctx context.Context, plan *models.ExecutionPlan) ([]models.Fill, error)
	Account(price float64) models.AccountState
}

// LedgerSink is the append-only audit trail. Writes are one line-delimited
// record per tick; ordering by Seq is the only index.
type LedgerSink interface {
	Append(record *models.LedgerRecord) error
	Close() error
}

// RecordPublisher forwards ledger records to an external backend
// (e.g. a Kafka topic) for downstream consumers. Optional.
type RecordPublisher interface {
	Publish(ctx context.Context, record *models.LedgerRecord) error
	Close() error
}

// RecordStorage persists ledger records to a queryable store
// (e.g. ClickHouse). Optional.
type RecordStorage interface {
	Store(ctx context.Context, record *models.LedgerRecord) error
	Close() error
}

// Metrics is the instrumentation surface the pipeline reports into.
type Metrics interface {
	RecordTickDuration(seconds float64)
	RecordDecision(outcome string)
	RecordAnomaly(detector, level string)
	RecordPlan(mode string)
	RecordError(kind string)
	RecordMid(price float64)
}
