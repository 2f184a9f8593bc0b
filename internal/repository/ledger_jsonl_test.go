package repository

import (
	"path/filepath"
	"testing"
	"time"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

func tickRecord(ts time.Time, mid float64) *models.LedgerRecord {
	return &models.LedgerRecord{
		Timestamp: ts,
		Features:  &models.FeatureVector{Timestamp: ts, Mid: mid},
		Risk:      &models.RiskDecision{Timestamp: ts, Outcome: models.OutcomeAllow},
		Explain:   "trade allowed",
	}
}

func TestLedgerAppendAndReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	l, err := NewJSONLLedger(path, logger.Nop())
	if err != nil {
		t.Fatalf("NewJSONLLedger: %v", err)
	}

	base := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := tickRecord(base.Add(time.Duration(i)*time.Second), 2000+float64(i))
		if err := l.Append(rec); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if rec.Seq != uint64(i+1) {
			t.Fatalf("record %d assigned seq %d", i, rec.Seq)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	records, err := ReadLedger(path)
	if err != nil {
		t.Fatalf("ReadLedger: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("read %d records, want 3", len(records))
	}
	for i, rec := range records {
		if rec.Seq != uint64(i+1) {
			t.Fatalf("record %d has seq %d", i, rec.Seq)
		}
		if rec.Features.Mid != 2000+float64(i) {
			t.Fatalf("record %d mid = %.2f", i, rec.Features.Mid)
		}
	}
	if !records[0].Timestamp.Equal(base) {
		t.Fatalf("timestamp = %s, want %s", records[0].Timestamp, base)
	}
}

// Reopening the same file continues the sequence instead of restarting it.
func TestLedgerReopenContinuesSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	base := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	l, err := NewJSONLLedger(path, logger.Nop())
	if err != nil {
		t.Fatalf("NewJSONLLedger: %v", err)
	}
	if err := l.Append(tickRecord(base, 2000)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	l.Close()

	l2, err := NewJSONLLedger(path, logger.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	rec := tickRecord(base.Add(time.Second), 2001)
	if err := l2.Append(rec); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	l2.Close()

	if rec.Seq != 2 {
		t.Fatalf("seq after reopen = %d, want 2", rec.Seq)
	}
	records, err := ReadLedger(path)
	if err != nil {
		t.Fatalf("ReadLedger: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("read %d records, want 2", len(records))
	}
}

func TestReadLedgerMissingFile(t *testing.T) {
	if _, err := ReadLedger(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("ReadLedger on missing file did not error")
	}
}

func TestLedgerPreservesNilIntent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	l, err := NewJSONLLedger(path, logger.Nop())
	if err != nil {
		t.Fatalf("NewJSONLLedger: %v", err)
	}

	rec := tickRecord(time.Now().UTC(), 2000)
	rec.Intent = nil
	if err := l.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	l.Close()

	records, err := ReadLedger(path)
	if err != nil {
		t.Fatalf("ReadLedger: %v", err)
	}
	if records[0].Intent != nil {
		t.Fatal("nil intent did not survive the round trip")
	}
}
