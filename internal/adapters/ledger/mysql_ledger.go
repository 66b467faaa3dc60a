package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/core"
)

// mysqlDupEntry is the MySQL error number for a duplicate key (ER_DUP_ENTRY).
const mysqlDupEntry = 1062

// MySQLLedger is a MySQL implementation of the core.Ledger interface, for
// deployments where the ledger lives next to other relational data.
type MySQLLedger struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLLedger connects to MySQL and initializes the schema. The DSN
// must carry parseTime=true so processed_at scans into time.Time.
func NewMySQLLedger(dsn string, logger *zap.Logger) (*MySQLLedger, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_emails (
			message_id VARCHAR(128) PRIMARY KEY,
			processed_at DATETIME(6) NOT NULL,
			subject TEXT,
			from_email VARCHAR(320),
			category VARCHAR(32) NOT NULL,
			confidence DOUBLE NOT NULL,
			provider VARCHAR(32) NOT NULL,
			model VARCHAR(128) NOT NULL,
			reasoning TEXT,
			label_applied VARCHAR(128),
			archived TINYINT(1) NOT NULL DEFAULT 0,
			INDEX idx_processed_at (processed_at),
			INDEX idx_category (category)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	logger.Info("Ledger database initialized", zap.String("backend", "mysql"))

	return &MySQLLedger{
		db:     db,
		logger: logger,
	}, nil
}

// IsProcessed reports whether a record exists for the message id.
func (l *MySQLLedger) IsProcessed(ctx context.Context, messageID string) (bool, error) {
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

// Record inserts the record. A duplicate-key error maps to
// core.ErrAlreadyRecorded.
func (l *MySQLLedger) Record(ctx context.Context, rec *core.ProcessedEmail) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO processed_emails
		(message_id, processed_at, subject, from_email, category,
		 confidence, provider, model, reasoning, label_applied, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.MessageID,
		rec.ProcessedAt.UTC(),
		rec.Subject,
		rec.From,
		string(rec.Category),
		rec.Confidence,
		rec.Provider,
		rec.Model,
		rec.Reasoning,
		rec.LabelApplied,
		rec.Archived,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDupEntry {
			return core.ErrAlreadyRecorded
		}
		return fmt.Errorf("failed to insert ledger record: %w", err)
	}

	l.logger.Debug("Recorded processed email", zap.String("message_id", rec.MessageID))
	return nil
}

// Stats returns per-category counts plus a "total" entry.
func (l *MySQLLedger) Stats(ctx context.Context) (map[string]int, error) {
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
func (l *MySQLLedger) Recent(ctx context.Context, limit int) ([]*core.ProcessedEmail, error) {
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
	return scanMySQLRecords(rows)
}

// ByCategory returns records for one category, newest first.
func (l *MySQLLedger) ByCategory(ctx context.Context, category core.Category, limit int) ([]*core.ProcessedEmail, error) {
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
	return scanMySQLRecords(rows)
}

// ClearAll deletes every record and returns the number deleted.
func (l *MySQLLedger) ClearAll(ctx context.Context) (int64, error) {
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
func (l *MySQLLedger) Close() error {
	return l.db.Close()
}

func scanMySQLRecords(rows *sql.Rows) ([]*core.ProcessedEmail, error) {
	var records []*core.ProcessedEmail
	for rows.Next() {
		var rec core.ProcessedEmail
		var category string
		if err := rows.Scan(
			&rec.MessageID,
			&rec.ProcessedAt,
			&rec.Subject,
			&rec.From,
			&category,
			&rec.Confidence,
			&rec.Provider,
			&rec.Model,
			&rec.Reasoning,
			&rec.LabelApplied,
			&rec.Archived,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		rec.Category = core.Category(category)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger rows: %w", err)
	}
	return records, nil
}
