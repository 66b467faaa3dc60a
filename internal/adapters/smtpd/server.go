// Package smtpd is an optional SMTP intake: users forward job mail to a
// local address, the server classifies each message, records it in the
// ledger, and optionally relays it onward with classification headers.
package smtpd

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/core"
)

const (
	categoryHeader   = "X-JobMail-Category"
	confidenceHeader = "X-JobMail-Confidence"
)

// Server is an SMTP intake implementing ports.MailIntake.
type Server struct {
	classifier   core.Classifier
	ledger       core.Ledger
	logger       *zap.Logger
	listenAddr   string
	domain       string
	relayEnabled bool
	relayAddr    string
	relayPort    int
	server       *smtp.Server
}

// NewServer creates a new SMTP intake server.
func NewServer(
	classifier core.Classifier,
	ledger core.Ledger,
	logger *zap.Logger,
	listenAddr string,
	domain string,
	relayEnabled bool,
	relayAddr string,
	relayPort int,
) *Server {
	return &Server{
		classifier:   classifier,
		ledger:       ledger,
		logger:       logger,
		listenAddr:   listenAddr,
		domain:       domain,
		relayEnabled: relayEnabled,
		relayAddr:    relayAddr,
		relayPort:    relayPort,
	}
}

// Start starts the SMTP server in the background.
func (s *Server) Start() error {
	s.server = smtp.NewServer(&backend{intake: s})
	s.server.Addr = s.listenAddr
	s.server.Domain = s.domain
	s.server.ReadTimeout = 30 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.MaxMessageBytes = 10 * 1024 * 1024
	s.server.MaxRecipients = 10
	s.server.AllowInsecureAuth = true

	s.logger.Info("SMTP intake starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			s.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the SMTP server.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// handleMessage classifies one received message, records it, and relays it
// when relaying is configured. A classification failure never rejects the
// message; it is relayed unclassified.
func (s *Server) handleMessage(from string, recipients []string, data []byte) error {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse message: %w", err)
	}

	messageID := canonicalMessageID(msg, data)
	result, err := s.classifyAndRecord(msg, messageID)
	if err != nil {
		s.logger.Error("Failed to classify intake message",
			zap.String("message_id", messageID),
			zap.Error(err))
	}

	if !s.relayEnabled {
		return nil
	}
	stamped := data
	if result != nil {
		stamped = stampHeaders(data, result)
	}
	addr := fmt.Sprintf("%s:%d", s.relayAddr, s.relayPort)
	if err := smtp.SendMail(addr, nil, from, recipients, bytes.NewReader(stamped)); err != nil {
		return fmt.Errorf("relay to %s: %w", addr, err)
	}
	return nil
}

// classifyAndRecord runs the ledger-gated classification for a message.
// Returns nil without error when the message id was seen before.
func (s *Server) classifyAndRecord(msg *mail.Message, messageID string) (*core.ClassificationResult, error) {
	ctx := context.Background()

	processed, err := s.ledger.IsProcessed(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if processed {
		s.logger.Debug("Intake message already processed", zap.String("message_id", messageID))
		return nil, nil
	}

	subject := msg.Header.Get("Subject")
	from := msg.Header.Get("From")
	body, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	result, err := s.classifier.Classify(ctx, subject, body)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Classified intake message",
		zap.String("message_id", messageID),
		zap.String("category", string(result.Category)),
		zap.Float64("confidence", result.Confidence))

	rec := &core.ProcessedEmail{
		MessageID:   messageID,
		ProcessedAt: time.Now().UTC(),
		Subject:     subject,
		From:        from,
		Category:    result.Category,
		Confidence:  result.Confidence,
		Provider:    result.Provider,
		Model:       result.Model,
		Reasoning:   result.Reasoning,
	}
	if err := s.ledger.Record(ctx, rec); err != nil && !errors.Is(err, core.ErrAlreadyRecorded) {
		return result, err
	}
	return result, nil
}

// canonicalMessageID uses the Message-Id header when present and a content
// hash otherwise, so the ledger key stays stable across redeliveries.
func canonicalMessageID(msg *mail.Message, data []byte) string {
	if id := strings.Trim(strings.TrimSpace(msg.Header.Get("Message-Id")), "<>"); id != "" {
		return id
	}
	sum := sha256.Sum256(data)
	return "sha256-" + hex.EncodeToString(sum[:16])
}

// stampHeaders prepends the classification headers to the raw message.
func stampHeaders(data []byte, result *core.ClassificationResult) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s: %s\r\n", categoryHeader, result.Category)
	fmt.Fprintf(&buf, "%s: %.2f\r\n", confidenceHeader, result.Confidence)
	buf.Write(data)
	return buf.Bytes()
}

type backend struct {
	intake *Server
}

func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{intake: b.intake}, nil
}

type session struct {
	intake     *Server
	from       string
	recipients []string
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.intake.handleMessage(s.from, s.recipients, data)
}

func (s *session) Reset() {
	s.from = ""
	s.recipients = nil
}

func (s *session) Logout() error {
	return nil
}
