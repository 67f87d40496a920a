package history

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// Log is the bounded, newest-first record of completed scans. Persistence is
// best-effort: storage failures are logged and never returned from Append.
type Log struct {
	mu      sync.Mutex
	records []domain.HistoryRecord

	kv     ports.KeyValueStore
	key    string
	max    int
	logger ports.Logger
}

// NewLog keeps at most max records under key in kv.
func NewLog(kv ports.KeyValueStore, key string, max int, logger ports.Logger) *Log {
	if key == "" {
		key = domain.DefaultScanHistoryKey
	}
	if max <= 0 {
		max = domain.DefaultMaxScanHistory
	}
	return &Log{kv: kv, key: key, max: max, logger: logger}
}

// Load primes the in-memory mirror from storage.
func (l *Log) Load(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if records, ok := l.read(ctx); ok {
		l.records = records
	}
}

// Append inserts rec at the head and truncates to the newest max records.
func (l *Log) Append(ctx context.Context, rec domain.HistoryRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	base := l.records
	if stored, ok := l.read(ctx); ok {
		base = stored
	}

	next := make([]domain.HistoryRecord, 0, min(len(base)+1, l.max))
	next = append(next, rec)
	for _, r := range base {
		if len(next) >= l.max {
			break
		}
		next = append(next, r)
	}
	l.records = next
	l.persist(ctx, next)
}

// Records returns up to limit records, newest first; limit <= 0 returns all.
func (l *Log) Records(limit int) []domain.HistoryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.HistoryRecord, n)
	copy(out, l.records[:n])
	return out
}

// Clear drops every record.
func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
	return l.kv.Delete(ctx, l.key)
}

// read loads the stored list. A missing or non-array value reads as empty;
// ok is false only when storage itself failed.
func (l *Log) read(ctx context.Context) ([]domain.HistoryRecord, bool) {
	raw, err := l.kv.Get(ctx, l.key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, true
	}
	if err != nil {
		l.logger.Error("read scan history", err, map[string]interface{}{"key": l.key})
		return nil, false
	}
	var records []domain.HistoryRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		l.logger.Warn("discarding malformed scan history", map[string]interface{}{"error": err.Error()})
		return nil, true
	}
	if len(records) > l.max {
		records = records[:l.max]
	}
	return records, true
}

func (l *Log) persist(ctx context.Context, records []domain.HistoryRecord) {
	data, err := json.Marshal(records)
	if err != nil {
		l.logger.Error("encode scan history", err, nil)
		return
	}
	if err := l.kv.Set(ctx, l.key, data); err != nil {
		l.logger.Error("persist scan history", err, map[string]interface{}{"entries": len(records)})
		return
	}
	l.logger.Debug("saved scan result", map[string]interface{}{"entries": len(records)})
}
