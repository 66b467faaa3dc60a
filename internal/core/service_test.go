package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/labels"
	"github.com/mikey/jobmail/internal/senderfilter"
)

type fakeClassifier struct {
	mu      sync.Mutex
	calls   int
	results map[string]*ClassificationResult
	errs    map[string]error
}

func (f *fakeClassifier) Classify(ctx context.Context, subject, body string) (*ClassificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[subject]; ok {
		return nil, err
	}
	if result, ok := f.results[subject]; ok {
		return result, nil
	}
	return &ClassificationResult{Category: CategoryUnknown, Confidence: 0.5, Provider: "fake", Model: "fake"}, nil
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type labelChange struct {
	add    []string
	remove []string
}

type fakeMailbox struct {
	mu       sync.Mutex
	messages map[string]*Email
	changes  map[string][]labelChange
	resolves int
}

func newFakeMailbox(messages ...*Email) *fakeMailbox {
	m := &fakeMailbox{
		messages: make(map[string]*Email),
		changes:  make(map[string][]labelChange),
	}
	for _, msg := range messages {
		m.messages[msg.ID] = msg
	}
	return m
}

func (m *fakeMailbox) List(ctx context.Context, query string, maxResults int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.messages))
	for id := range m.messages {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *fakeMailbox) Get(ctx context.Context, messageID string) (*Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("no message %s", messageID)
	}
	return msg, nil
}

func (m *fakeMailbox) ModifyLabels(ctx context.Context, messageID string, add, remove []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes[messageID] = append(m.changes[messageID], labelChange{add: add, remove: remove})
	return nil
}

func (m *fakeMailbox) GetOrCreateLabel(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolves++
	return "id-" + name, nil
}

func (m *fakeMailbox) changesFor(messageID string) []labelChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changes[messageID]
}

type fakeLedger struct {
	mu      sync.Mutex
	records map[string]*ProcessedEmail
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[string]*ProcessedEmail)}
}

func (l *fakeLedger) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[messageID]
	return ok, nil
}

func (l *fakeLedger) Record(ctx context.Context, rec *ProcessedEmail) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[rec.MessageID]; ok {
		return ErrAlreadyRecorded
	}
	clone := *rec
	l.records[rec.MessageID] = &clone
	return nil
}

func (l *fakeLedger) Stats(ctx context.Context) (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stats := make(map[string]int)
	for _, rec := range l.records {
		stats[string(rec.Category)]++
	}
	stats["total"] = len(l.records)
	return stats, nil
}

func (l *fakeLedger) Recent(ctx context.Context, limit int) ([]*ProcessedEmail, error) {
	return nil, nil
}

func (l *fakeLedger) ByCategory(ctx context.Context, category Category, limit int) ([]*ProcessedEmail, error) {
	return nil, nil
}

func (l *fakeLedger) ClearAll(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	deleted := int64(len(l.records))
	l.records = make(map[string]*ProcessedEmail)
	return deleted, nil
}

func (l *fakeLedger) record(messageID string) *ProcessedEmail {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.records[messageID]
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func newTestService(classifier *fakeClassifier, mailbox *fakeMailbox, ledger *fakeLedger, params ServiceParams, ignore []string) *Service {
	if params.Threshold == 0 {
		params.Threshold = 0.8
	}
	if params.Labels == (LabelSet{}) {
		params.Labels = testLabels
	}
	if params.Workers == 0 {
		params.Workers = 2
	}
	return NewService(
		classifier,
		mailbox,
		ledger,
		labels.New(mailbox.GetOrCreateLabel),
		senderfilter.New(ignore, zap.NewNop()),
		zap.NewNop(),
		params,
	)
}

func TestProcessMessageAppliesLabelAndArchives(t *testing.T) {
	classifier := &fakeClassifier{results: map[string]*ClassificationResult{
		"Application received": {Category: CategoryAcknowledgement, Confidence: 0.95, Provider: "fake", Model: "fake"},
	}}
	mailbox := newFakeMailbox(&Email{ID: "m1", From: "jobs@acme.com", Subject: "Application received", Body: "Thanks for applying."})
	ledger := newFakeLedger()
	svc := newTestService(classifier, mailbox, ledger, ServiceParams{}, nil)

	processed, err := svc.ProcessMessage(context.Background(), "m1")
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if !processed {
		t.Fatal("ProcessMessage() = false, want true")
	}

	changes := mailbox.changesFor("m1")
	if len(changes) != 1 {
		t.Fatalf("got %d label changes, want 1", len(changes))
	}
	if len(changes[0].add) != 1 || changes[0].add[0] != "id-Acknowledged" {
		t.Errorf("added labels = %v, want [id-Acknowledged]", changes[0].add)
	}
	if len(changes[0].remove) != 1 || changes[0].remove[0] != "INBOX" {
		t.Errorf("removed labels = %v, want [INBOX]", changes[0].remove)
	}

	rec := ledger.record("m1")
	if rec == nil {
		t.Fatal("no ledger record written")
	}
	if rec.Category != CategoryAcknowledgement || rec.LabelApplied != "Acknowledged" || !rec.Archived {
		t.Errorf("record = %+v, want acknowledgement/Acknowledged/archived", rec)
	}
}

func TestProcessMessageFollowupStaysInInbox(t *testing.T) {
	classifier := &fakeClassifier{results: map[string]*ClassificationResult{
		"Interview invitation": {Category: CategoryFollowup, Confidence: 0.9, Provider: "fake", Model: "fake"},
	}}
	mailbox := newFakeMailbox(&Email{ID: "m1", From: "hr@acme.com", Subject: "Interview invitation", Body: "Please pick a slot."})
	ledger := newFakeLedger()
	svc := newTestService(classifier, mailbox, ledger, ServiceParams{}, nil)

	if _, err := svc.ProcessMessage(context.Background(), "m1"); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}

	changes := mailbox.changesFor("m1")
	if len(changes) != 1 {
		t.Fatalf("got %d label changes, want 1", len(changes))
	}
	if len(changes[0].remove) != 0 {
		t.Errorf("removed labels = %v, want none", changes[0].remove)
	}
	if rec := ledger.record("m1"); rec.Archived {
		t.Error("followup record marked archived")
	}
}

func TestProcessMessageBelowThresholdRecordsWithoutAction(t *testing.T) {
	classifier := &fakeClassifier{results: map[string]*ClassificationResult{
		"Maybe a rejection": {Category: CategoryRejection, Confidence: 0.7, Provider: "fake", Model: "fake"},
	}}
	mailbox := newFakeMailbox(&Email{ID: "m1", From: "jobs@acme.com", Subject: "Maybe a rejection", Body: "..."})
	ledger := newFakeLedger()
	svc := newTestService(classifier, mailbox, ledger, ServiceParams{}, nil)

	processed, err := svc.ProcessMessage(context.Background(), "m1")
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if !processed {
		t.Fatal("ProcessMessage() = false, want true")
	}
	if changes := mailbox.changesFor("m1"); len(changes) != 0 {
		t.Errorf("mailbox mutated below threshold: %v", changes)
	}

	rec := ledger.record("m1")
	if rec == nil {
		t.Fatal("below-threshold result not recorded")
	}
	if rec.LabelApplied != "" || rec.Archived {
		t.Errorf("record = %+v, want no action fields", rec)
	}
}

func TestProcessMessageUnknownIsRecordedButUntouched(t *testing.T) {
	classifier := &fakeClassifier{results: map[string]*ClassificationResult{
		"Win a prize": {Category: CategoryUnknown, Confidence: 0.97, Provider: "fake", Model: "fake"},
	}}
	mailbox := newFakeMailbox(&Email{ID: "m1", From: "spam@example.com", Subject: "Win a prize", Body: "..."})
	ledger := newFakeLedger()
	svc := newTestService(classifier, mailbox, ledger, ServiceParams{}, nil)

	if _, err := svc.ProcessMessage(context.Background(), "m1"); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if changes := mailbox.changesFor("m1"); len(changes) != 0 {
		t.Errorf("mailbox mutated for unknown category: %v", changes)
	}
	if ledger.record("m1") == nil {
		t.Error("unknown result not recorded")
	}
}

func TestProcessMessageIdempotent(t *testing.T) {
	classifier := &fakeClassifier{results: map[string]*ClassificationResult{
		"Application received": {Category: CategoryAcknowledgement, Confidence: 0.95, Provider: "fake", Model: "fake"},
	}}
	mailbox := newFakeMailbox(&Email{ID: "m1", From: "jobs@acme.com", Subject: "Application received", Body: "..."})
	ledger := newFakeLedger()
	svc := newTestService(classifier, mailbox, ledger, ServiceParams{}, nil)

	ctx := context.Background()
	if processed, err := svc.ProcessMessage(ctx, "m1"); err != nil || !processed {
		t.Fatalf("first ProcessMessage() = %t, %v", processed, err)
	}
	processed, err := svc.ProcessMessage(ctx, "m1")
	if err != nil {
		t.Fatalf("second ProcessMessage() error = %v", err)
	}
	if processed {
		t.Error("second ProcessMessage() = true, want skip")
	}
	if classifier.callCount() != 1 {
		t.Errorf("classifier called %d times, want 1", classifier.callCount())
	}
	if got := len(mailbox.changesFor("m1")); got != 1 {
		t.Errorf("got %d label changes, want 1", got)
	}
	if ledger.count() != 1 {
		t.Errorf("ledger has %d records, want 1", ledger.count())
	}
}

func TestProcessMessageIgnoredSender(t *testing.T) {
	classifier := &fakeClassifier{}
	mailbox := newFakeMailbox(&Email{ID: "m1", From: "Partner <partner@home.example>", Subject: "Dinner", Body: "..."})
	ledger := newFakeLedger()
	svc := newTestService(classifier, mailbox, ledger, ServiceParams{}, []string{"home.example"})

	processed, err := svc.ProcessMessage(context.Background(), "m1")
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if processed {
		t.Error("ProcessMessage() = true, want skip")
	}
	if classifier.callCount() != 0 {
		t.Errorf("classifier called %d times for ignored sender", classifier.callCount())
	}
	if ledger.count() != 0 {
		t.Error("ignored sender was recorded")
	}
}

func TestProcessMessageDryRun(t *testing.T) {
	classifier := &fakeClassifier{results: map[string]*ClassificationResult{
		"Application received": {Category: CategoryAcknowledgement, Confidence: 0.95, Provider: "fake", Model: "fake"},
	}}
	mailbox := newFakeMailbox(&Email{ID: "m1", From: "jobs@acme.com", Subject: "Application received", Body: "..."})
	ledger := newFakeLedger()
	svc := newTestService(classifier, mailbox, ledger, ServiceParams{DryRun: true}, nil)

	processed, err := svc.ProcessMessage(context.Background(), "m1")
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if !processed {
		t.Fatal("ProcessMessage() = false, want true")
	}
	if changes := mailbox.changesFor("m1"); len(changes) != 0 {
		t.Errorf("mailbox mutated in dry-run: %v", changes)
	}
	if ledger.count() != 1 {
		t.Error("dry-run result not recorded")
	}
}

func TestProcessQueryPartialFailure(t *testing.T) {
	classifier := &fakeClassifier{
		results: map[string]*ClassificationResult{
			"a": {Category: CategoryAcknowledgement, Confidence: 0.9, Provider: "fake", Model: "fake"},
			"b": {Category: CategoryRejection, Confidence: 0.9, Provider: "fake", Model: "fake"},
		},
		errs: map[string]error{
			"c": errors.New("backend unavailable"),
		},
	}
	mailbox := newFakeMailbox(
		&Email{ID: "m1", From: "x@acme.com", Subject: "a"},
		&Email{ID: "m2", From: "x@acme.com", Subject: "b"},
		&Email{ID: "m3", From: "x@acme.com", Subject: "c"},
	)
	ledger := newFakeLedger()
	svc := newTestService(classifier, mailbox, ledger, ServiceParams{Workers: 3}, nil)

	stats, err := svc.ProcessQuery(context.Background(), "in:inbox", 10)
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}
	want := BatchStats{Found: 3, Processed: 2, Skipped: 0, Errored: 1}
	if stats != want {
		t.Errorf("ProcessQuery() = %+v, want %+v", stats, want)
	}
	if ledger.count() != 2 {
		t.Errorf("ledger has %d records, want 2", ledger.count())
	}
}

func TestProcessQuerySkipsProcessed(t *testing.T) {
	classifier := &fakeClassifier{results: map[string]*ClassificationResult{
		"a": {Category: CategoryAcknowledgement, Confidence: 0.9, Provider: "fake", Model: "fake"},
	}}
	mailbox := newFakeMailbox(
		&Email{ID: "m1", From: "x@acme.com", Subject: "a"},
		&Email{ID: "m2", From: "x@acme.com", Subject: "a"},
	)
	ledger := newFakeLedger()
	if err := ledger.Record(context.Background(), &ProcessedEmail{MessageID: "m2", Category: CategoryRejection}); err != nil {
		t.Fatal(err)
	}
	svc := newTestService(classifier, mailbox, ledger, ServiceParams{}, nil)

	stats, err := svc.ProcessQuery(context.Background(), "in:inbox", 10)
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}
	want := BatchStats{Found: 2, Processed: 1, Skipped: 1, Errored: 0}
	if stats != want {
		t.Errorf("ProcessQuery() = %+v, want %+v", stats, want)
	}
}
