package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/jobmail/internal/labels"
	"github.com/mikey/jobmail/internal/senderfilter"
)

// inboxLabelID is the Gmail system label removed to archive a message.
const inboxLabelID = "INBOX"

// ServiceParams carries the scalar configuration of the processing service.
type ServiceParams struct {
	Threshold float64
	Labels    LabelSet
	Workers   int
	DryRun    bool
}

// Service runs messages through classification and applies mailbox actions.
type Service struct {
	classifier Classifier
	mailbox    Mailbox
	ledger     Ledger
	labelIDs   *labels.Cache
	ignore     *senderfilter.Filter
	logger     *zap.Logger
	threshold  float64
	labels     LabelSet
	workers    int
	dryRun     bool
}

// NewService creates a new processing service.
func NewService(
	classifier Classifier,
	mailbox Mailbox,
	ledger Ledger,
	labelIDs *labels.Cache,
	ignore *senderfilter.Filter,
	logger *zap.Logger,
	params ServiceParams,
) *Service {
	workers := params.Workers
	if workers < 1 {
		workers = 1
	}
	return &Service{
		classifier: classifier,
		mailbox:    mailbox,
		ledger:     ledger,
		labelIDs:   labelIDs,
		ignore:     ignore,
		logger:     logger,
		threshold:  params.Threshold,
		labels:     params.Labels,
		workers:    workers,
		dryRun:     params.DryRun,
	}
}

// ProcessMessage classifies one message and applies the decided action.
// It returns false when the message was skipped: already recorded in the
// ledger, or sent from an ignored address.
func (s *Service) ProcessMessage(ctx context.Context, messageID string) (bool, error) {
	processed, err := s.ledger.IsProcessed(ctx, messageID)
	if err != nil {
		return false, fmt.Errorf("ledger lookup for %s: %w", messageID, err)
	}
	if processed {
		s.logger.Debug("Message already processed, skipping", zap.String("message_id", messageID))
		return false, nil
	}

	msg, err := s.mailbox.Get(ctx, messageID)
	if err != nil {
		return false, fmt.Errorf("fetch message %s: %w", messageID, err)
	}

	if s.ignore != nil && s.ignore.Matches(msg.From) {
		s.logger.Info("Sender on ignore list, skipping",
			zap.String("message_id", messageID),
			zap.String("from", msg.From))
		return false, nil
	}

	result, err := s.classifier.Classify(ctx, msg.Subject, msg.Body)
	if err != nil {
		return false, fmt.Errorf("classify message %s: %w", messageID, err)
	}
	s.logger.Info("Classified message",
		zap.String("message_id", messageID),
		zap.String("category", string(result.Category)),
		zap.Float64("confidence", result.Confidence),
		zap.String("provider", result.Provider))

	action := Decide(result.Category, result.Confidence, s.threshold, s.labels)
	if action.IsNoop() && result.Confidence < s.threshold {
		s.logger.Info("Confidence below threshold, no action taken",
			zap.String("message_id", messageID),
			zap.Float64("confidence", result.Confidence),
			zap.Float64("threshold", s.threshold))
	}

	if !action.IsNoop() {
		if err := s.applyAction(ctx, messageID, action); err != nil {
			return false, err
		}
	}

	rec := &ProcessedEmail{
		MessageID:    messageID,
		ProcessedAt:  time.Now().UTC(),
		Subject:      msg.Subject,
		From:         msg.From,
		Category:     result.Category,
		Confidence:   result.Confidence,
		Provider:     result.Provider,
		Model:        result.Model,
		Reasoning:    result.Reasoning,
		LabelApplied: action.Label,
		Archived:     action.Archive,
	}
	if err := s.ledger.Record(ctx, rec); err != nil {
		if errors.Is(err, ErrAlreadyRecorded) {
			// A concurrent writer got there first; at-most-once holds.
			s.logger.Debug("Message recorded by another writer, skipping",
				zap.String("message_id", messageID))
			return false, nil
		}
		return false, fmt.Errorf("record message %s: %w", messageID, err)
	}

	return true, nil
}

// applyAction labels and optionally archives a message. In dry-run mode it
// only logs what it would do.
func (s *Service) applyAction(ctx context.Context, messageID string, action Action) error {
	if s.dryRun {
		s.logger.Info("[dry-run] Would apply label",
			zap.String("message_id", messageID),
			zap.String("label", action.Label),
			zap.Bool("archive", action.Archive))
		return nil
	}

	labelID, err := s.labelIDs.ID(ctx, action.Label)
	if err != nil {
		return fmt.Errorf("resolve label %q: %w", action.Label, err)
	}

	var remove []string
	if action.Archive {
		remove = []string{inboxLabelID}
	}
	if err := s.mailbox.ModifyLabels(ctx, messageID, []string{labelID}, remove); err != nil {
		return fmt.Errorf("modify labels on %s: %w", messageID, err)
	}
	s.logger.Info("Applied label",
		zap.String("message_id", messageID),
		zap.String("label", action.Label),
		zap.Bool("archived", action.Archive))
	return nil
}

// ProcessQuery lists messages matching the query and processes them across
// a bounded pool of workers. One message failing never aborts the batch;
// failures are counted and logged.
func (s *Service) ProcessQuery(ctx context.Context, query string, limit int64) (BatchStats, error) {
	ids, err := s.mailbox.List(ctx, query, limit)
	if err != nil {
		return BatchStats{}, fmt.Errorf("list messages: %w", err)
	}

	stats := BatchStats{Found: len(ids)}
	if len(ids) == 0 {
		s.logger.Info("No messages matched query", zap.String("query", query))
		return stats, nil
	}
	s.logger.Info("Processing messages",
		zap.Int("found", len(ids)),
		zap.Int("workers", s.workers),
		zap.String("query", query))

	var processed, skipped, errored atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, id := range ids {
		g.Go(func() error {
			ok, err := s.ProcessMessage(ctx, id)
			switch {
			case err != nil:
				errored.Add(1)
				s.logger.Error("Failed to process message",
					zap.String("message_id", id),
					zap.Error(err))
			case ok:
				processed.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Processed = int(processed.Load())
	stats.Skipped = int(skipped.Load())
	stats.Errored = int(errored.Load())

	s.logger.Info("Processing complete",
		zap.Int("found", stats.Found),
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errored", stats.Errored))

	return stats, nil
}

// Stats returns per-category counts from the ledger.
func (s *Service) Stats(ctx context.Context) (map[string]int, error) {
	return s.ledger.Stats(ctx)
}
