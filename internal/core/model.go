package core

import (
	"time"
)

// Category is the classification outcome for a job-application email.
// The set is closed; anything a model invents outside of it is coerced
// to CategoryUnknown by ParseResponse.
type Category string

const (
	// CategoryAcknowledgement covers confirmations about the user's own
	// application (received, sent to hiring manager, viewed, thanks).
	CategoryAcknowledgement Category = "acknowledgement"
	// CategoryRejection covers declined applications and filled positions.
	CategoryRejection Category = "rejection"
	// CategoryFollowup covers emails that need action from the user
	// (schedule an interview, complete an assessment, respond).
	CategoryFollowup Category = "followup_required"
	// CategoryJobboard covers job alerts and multi-listing digests.
	CategoryJobboard Category = "jobboard"
	// CategoryUnknown covers spam and anything unclear.
	CategoryUnknown Category = "unknown"
)

// Categories lists every valid category, in taxonomy order.
func Categories() []Category {
	return []Category{
		CategoryAcknowledgement,
		CategoryRejection,
		CategoryFollowup,
		CategoryJobboard,
		CategoryUnknown,
	}
}

// ParseCategory maps a raw string onto the taxonomy. The boolean reports
// whether the value was a known category.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryAcknowledgement, CategoryRejection, CategoryFollowup,
		CategoryJobboard, CategoryUnknown:
		return Category(s), true
	}
	return CategoryUnknown, false
}

// Email is the extracted form of a mailbox message.
type Email struct {
	ID      string
	From    string
	Subject string
	Body    string
}

// ClassificationResult is the normalized outcome of one classifier call.
// Immutable after construction.
type ClassificationResult struct {
	Category   Category
	Confidence float64
	Provider   string
	Model      string
	Reasoning  string
}

// Action is the mailbox mutation decided for a classification.
// A zero Action (empty label, no archive) is a no-op.
type Action struct {
	Label   string
	Archive bool
}

// IsNoop reports whether the action mutates the mailbox at all.
func (a Action) IsNoop() bool {
	return a.Label == ""
}

// ProcessedEmail is the durable ledger record for one message id.
// Written once on first successful classification, never mutated.
type ProcessedEmail struct {
	MessageID    string
	ProcessedAt  time.Time
	Subject      string
	From         string
	Category     Category
	Confidence   float64
	Provider     string
	Model        string
	Reasoning    string
	LabelApplied string
	Archived     bool
}

// BatchStats summarizes one batch run.
type BatchStats struct {
	Found     int
	Processed int
	Skipped   int
	Errored   int
}
