package repository

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

// JSONLLedger is the append-only audit file: one JSON line per tick,
// flushed on every append so a crash loses at most the record being
// written. It assigns Seq on append; records are never rewritten.
type JSONLLedger struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
	seq  uint64
	path string
	log  *logger.Logger
}

// NewJSONLLedger opens (or creates) the ledger file in append mode.
func NewJSONLLedger(path string, log *logger.Logger) (*JSONLLedger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	// Resume the sequence after the last record already on disk.
	seq, err := lastSeq(path)
	if err != nil {
		f.Close()
		return nil, err
	}

	log.Info("ledger opened",
		logger.String("path", path),
		logger.Int64("next_seq", int64(seq+1)),
	)
	return &JSONLLedger{
		file: f,
		w:    bufio.NewWriter(f),
		seq:  seq,
		path: path,
		log:  log,
	}, nil
}

// Append writes one record as a single JSON line and flushes it.
func (l *JSONLLedger) Append(record *models.LedgerRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	record.Seq = l.seq

	line, err := json.Marshal(record)
	if err != nil {
		l.seq--
		return fmt.Errorf("marshal ledger record: %w", err)
	}
	if _, err := l.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write ledger record: %w", err)
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}
	return nil
}

// Path returns the ledger file path.
func (l *JSONLLedger) Path() string {
	return l.path
}

func (l *JSONLLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	if err := l.w.Flush(); err != nil {
		l.file.Close()
		l.file = nil
		return err
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadLedger loads every record from a ledger file in order. Malformed
// lines abort the read; a truncated trailing line means the process died
// mid-write and the file should be repaired by hand.
func ReadLedger(path string) ([]*models.LedgerRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var records []*models.LedgerRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec models.LedgerRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", lineNo, err)
		}
		records = append(records, &rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	return records, nil
}

func lastSeq(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open ledger for seq scan: %w", err)
	}
	defer f.Close()

	var seq uint64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec struct {
			Seq uint64 `json:"seq"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue // tolerate a torn trailing line
		}
		if rec.Seq > seq {
			seq = rec.Seq
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("scan ledger for seq: %w", err)
	}
	return seq, nil
}
