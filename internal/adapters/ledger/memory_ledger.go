package ledger

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/core"
)

// MemoryLedger is an in-memory implementation of the core.Ledger
// interface, used for dry runs and tests. Records do not survive the
// process.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[string]*core.ProcessedEmail
	logger  *zap.Logger
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger(logger *zap.Logger) *MemoryLedger {
	return &MemoryLedger{
		records: make(map[string]*core.ProcessedEmail),
		logger:  logger,
	}
}

// IsProcessed reports whether a record exists for the message id.
func (l *MemoryLedger) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.records[messageID]
	return ok, nil
}

// Record inserts the record, returning core.ErrAlreadyRecorded on a
// duplicate message id.
func (l *MemoryLedger) Record(ctx context.Context, rec *core.ProcessedEmail) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[rec.MessageID]; ok {
		return core.ErrAlreadyRecorded
	}
	clone := *rec
	l.records[rec.MessageID] = &clone
	return nil
}

// Stats returns per-category counts plus a "total" entry.
func (l *MemoryLedger) Stats(ctx context.Context) (map[string]int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]int)
	for _, rec := range l.records {
		stats[string(rec.Category)]++
	}
	stats["total"] = len(l.records)
	return stats, nil
}

// Recent returns the most recently processed records, newest first.
func (l *MemoryLedger) Recent(ctx context.Context, limit int) ([]*core.ProcessedEmail, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := l.sortedByTimeDesc(func(*core.ProcessedEmail) bool { return true })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// ByCategory returns records for one category, newest first.
func (l *MemoryLedger) ByCategory(ctx context.Context, category core.Category, limit int) ([]*core.ProcessedEmail, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := l.sortedByTimeDesc(func(rec *core.ProcessedEmail) bool {
		return rec.Category == category
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// ClearAll deletes every record and returns the number deleted.
func (l *MemoryLedger) ClearAll(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	deleted := int64(len(l.records))
	l.records = make(map[string]*core.ProcessedEmail)
	if l.logger != nil {
		l.logger.Warn("Cleared ledger", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// sortedByTimeDesc copies matching records, newest first. Callers hold the
// lock.
func (l *MemoryLedger) sortedByTimeDesc(match func(*core.ProcessedEmail) bool) []*core.ProcessedEmail {
	records := make([]*core.ProcessedEmail, 0, len(l.records))
	for _, rec := range l.records {
		if match(rec) {
			clone := *rec
			records = append(records, &clone)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ProcessedAt.After(records[j].ProcessedAt)
	})
	return records
}
