package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ToxicTide/internal/domain/models"
	pkgch "ToxicTide/pkg/clickhouse"
	applogger "ToxicTide/pkg/logger"
)

// CHRecordStorage implements RecordStorage backed by ClickHouse. Each tick
// is stored with its headline columns for querying plus the full record as
// JSON for audits.
type CHRecordStorage struct {
	db *sql.DB
	l  *applogger.Logger
}

// RecordSchema creates the decision table. Idempotent.
var RecordSchema = []string{
	`CREATE TABLE IF NOT EXISTS decision_records (
        seq          UInt64,
        ts           DateTime64(3, 'UTC'),
        mid          Float64,
        stress_level LowCardinality(String),
        outcome      LowCardinality(String),
        plan_mode    LowCardinality(String),
        notional_usd Float64,
        record       String
    ) ENGINE = MergeTree()
    ORDER BY (ts, seq)`,
}

func NewCHRecordStorage(ch *pkgch.Client, l *applogger.Logger) *CHRecordStorage {
	return &CHRecordStorage{db: ch.DB(), l: l}
}

// Store inserts one ledger record.
func (s *CHRecordStorage) Store(ctx context.Context, record *models.LedgerRecord) error {
	start := time.Now()

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	var mid float64
	if record.Features != nil {
		mid = record.Features.Mid
	}
	var stressLevel string
	if record.Stress != nil {
		stressLevel = string(record.Stress.Level)
	}
	var outcome string
	var notional float64
	if record.Risk != nil {
		outcome = string(record.Risk.Outcome)
		notional = record.Risk.AdjustedNotionalUSD
	}
	var planMode string
	if record.Plan != nil {
		planMode = string(record.Plan.Mode)
	}

	const q = `
        INSERT INTO decision_records
            (seq, ts, mid, stress_level, outcome, plan_mode, notional_usd, record)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	if _, err := s.db.ExecContext(ctx, q,
		record.Seq, record.Timestamp, mid, stressLevel, outcome, planMode, notional, string(raw),
	); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse store record error",
				applogger.Int64("seq", int64(record.Seq)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store record: %w", err)
	}

	if s.l != nil {
		s.l.Debug("clickhouse record stored",
			applogger.Int64("seq", int64(record.Seq)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHRecordStorage) Close() error {
	// Connection pool is owned by the shared client.
	return nil
}
