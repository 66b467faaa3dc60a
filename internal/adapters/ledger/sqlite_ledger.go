package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/core"
)

// busyRetries bounds the retry loop on transient lock contention.
const busyRetries = 3

// SQLiteLedger is a SQLite implementation of the core.Ledger interface.
// The message_id primary key is the backstop for the write-once guarantee.
type SQLiteLedger struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteLedger opens (and if needed initializes) the ledger database.
func NewSQLiteLedger(dbPath string, logger *zap.Logger) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_emails (
			message_id TEXT PRIMARY KEY,
			processed_at TEXT NOT NULL,
			subject TEXT,
			from_email TEXT,
			category TEXT NOT NULL,
			confidence REAL NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			reasoning TEXT,
			label_applied TEXT,
			archived INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_processed_at ON processed_emails(processed_at)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_category ON processed_emails(category)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	logger.Info("Ledger database initialized", zap.String("path", dbPath))

	return &SQLiteLedger{
		db:     db,
		logger: logger,
	}, nil
}

// IsProcessed reports whether a record exists for the message id.
func (l *SQLiteLedger) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx, `
		SELECT 1 FROM processed_emails WHERE message_id = ?
	`, messageID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}
	return true, nil
}

// Record inserts the record, retrying briefly on lock contention. A
// primary-key conflict maps to core.ErrAlreadyRecorded.
func (l *SQLiteLedger) Record(ctx context.Context, rec *core.ProcessedEmail) error {
	var err error
	for attempt := 0; attempt <= busyRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		_, err = l.db.ExecContext(ctx, `
			INSERT INTO processed_emails
			(message_id, processed_at, subject, from_email, category,
			 confidence, provider, model, reasoning, label_applied, archived)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rec.MessageID,
			rec.ProcessedAt.UTC().Format(time.RFC3339Nano),
			rec.Subject,
			rec.From,
			string(rec.Category),
			rec.Confidence,
			rec.Provider,
			rec.Model,
			rec.Reasoning,
			rec.LabelApplied,
			boolToInt(rec.Archived),
		)
		if err == nil {
			l.logger.Debug("Recorded processed email", zap.String("message_id", rec.MessageID))
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) {
			if sqliteErr.Code == sqlite3.ErrConstraint {
				return core.ErrAlreadyRecorded
			}
			if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
				l.logger.Debug("Ledger busy, retrying",
					zap.String("message_id", rec.MessageID),
					zap.Int("attempt", attempt+1))
				continue
			}
		}
		break
	}
	return fmt.Errorf("failed to insert ledger record: %w", err)
}

// Stats returns per-category counts plus a "total" entry.
func (l *SQLiteLedger) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM processed_emails GROUP BY category
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	total := 0
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats[category] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stats rows: %w", err)
	}
	stats["total"] = total
	return stats, nil
}

// Recent returns the most recently processed records, newest first.
func (l *SQLiteLedger) Recent(ctx context.Context, limit int) ([]*core.ProcessedEmail, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT message_id, processed_at, subject, from_email, category,
		       confidence, provider, model, reasoning, label_applied, archived
		FROM processed_emails
		ORDER BY processed_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ByCategory returns records for one category, newest first.
func (l *SQLiteLedger) ByCategory(ctx context.Context, category core.Category, limit int) ([]*core.ProcessedEmail, error) {
	query := `
		SELECT message_id, processed_at, subject, from_email, category,
		       confidence, provider, model, reasoning, label_applied, archived
		FROM processed_emails
		WHERE category = ?
		ORDER BY processed_at DESC
	`
	args := []interface{}{string(category)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records by category: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ClearAll deletes every record and returns the number deleted.
func (l *SQLiteLedger) ClearAll(ctx context.Context) (int64, error) {
	result, err := l.db.ExecContext(ctx, `DELETE FROM processed_emails`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear ledger: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	l.logger.Warn("Cleared ledger", zap.Int64("deleted", deleted))
	return deleted, nil
}

// Close closes the database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func scanRecords(rows *sql.Rows) ([]*core.ProcessedEmail, error) {
	var records []*core.ProcessedEmail
	for rows.Next() {
		var rec core.ProcessedEmail
		var processedAt, category string
		var archived int
		if err := rows.Scan(
			&rec.MessageID,
			&processedAt,
			&rec.Subject,
			&rec.From,
			&category,
			&rec.Confidence,
			&rec.Provider,
			&rec.Model,
			&rec.Reasoning,
			&rec.LabelApplied,
			&archived,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, processedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse processed_at: %w", err)
		}
		rec.ProcessedAt = ts
		rec.Category = core.Category(category)
		rec.Archived = archived != 0
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger rows: %w", err)
	}
	return records, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
