package core

import (
	"context"
)

// Classifier defines the contract implemented once per LLM backend.
// Implementations must be safe for concurrent use; they hold only
// read-only configuration.
type Classifier interface {
	// Classify sends the subject/body pair to the backend and returns
	// the normalized result.
	Classify(ctx context.Context, subject, body string) (*ClassificationResult, error)
}

// Mailbox defines the message-store operations the pipeline consumes.
// Calls are fallible remote calls; no retry happens at this layer.
type Mailbox interface {
	// List returns ids of messages matching the query.
	List(ctx context.Context, query string, maxResults int64) ([]string, error)

	// Get fetches a message and extracts its text parts.
	Get(ctx context.Context, messageID string) (*Email, error)

	// ModifyLabels adds and removes label ids on a message.
	ModifyLabels(ctx context.Context, messageID string, add, remove []string) error

	// GetOrCreateLabel resolves a label name to its id, creating the
	// label if it does not exist.
	GetOrCreateLabel(ctx context.Context, name string) (string, error)
}

// Ledger is the write-once record of processed messages.
type Ledger interface {
	// IsProcessed reports whether a record exists for the message id.
	IsProcessed(ctx context.Context, messageID string) (bool, error)

	// Record inserts the record. Returns ErrAlreadyRecorded if a record
	// for the same message id exists; the uniqueness constraint is the
	// backstop for concurrent writers.
	Record(ctx context.Context, rec *ProcessedEmail) error

	// Stats returns per-category counts plus a "total" entry.
	Stats(ctx context.Context) (map[string]int, error)

	// Recent returns the most recently processed records, newest first.
	Recent(ctx context.Context, limit int) ([]*ProcessedEmail, error)

	// ByCategory returns records for one category, newest first.
	// A non-positive limit means no limit.
	ByCategory(ctx context.Context, category Category, limit int) ([]*ProcessedEmail, error)

	// ClearAll deletes every record and returns the number deleted.
	ClearAll(ctx context.Context) (int64, error)
}
