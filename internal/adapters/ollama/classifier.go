package ollama

import (
	"context"
	"fmt"
	"math"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/core"
	"github.com/mikey/jobmail/internal/utils"
)

const providerName = "ollama"

// Smart truncation bounds for small local models: bodies longer than
// truncateThreshold are cut to the first truncateHead bytes plus the last
// truncateTail bytes, keeping both the opening cues and the signature.
const (
	truncateThreshold = 2000
	truncateHead      = 1500
	truncateTail      = 500
)

// systemPrompt is tuned for small local models: shorter examples and an
// explicit acknowledgement-versus-jobboard section, which is where they
// most often go wrong.
const systemPrompt = `Classify the email TYPE. Output this JSON:
{"category": "X", "confidence": 0.0-1.0, "reasoning": "brief"}

category must be ONE of: acknowledgement, rejection, followup_required, jobboard, unknown

How to classify:
- Multiple job listings (>1 job) = jobboard
- "received", "was sent to", "was viewed", "thanks for applying" = acknowledgement
- "not moving forward" / "position filled" = rejection
- "schedule" / "complete assessment" / "action required" = followup_required
- Spam/unclear = unknown

CRITICAL: acknowledgement vs jobboard
- "Your application was sent to Google" = acknowledgement (about YOUR application)
- "Your application was viewed by hiring manager" = acknowledgement (YOUR app activity)
- "Thanks for applying to Software Engineer" = acknowledgement (confirmation)
- "5 new jobs matching your search" = jobboard (multiple job listings)

Examples:
Subject: "Application sent to Company X" → acknowledgement
Subject: "Your application was viewed" → acknowledgement
Subject: "Thanks for applying" → acknowledgement
Subject: "New jobs for you" → jobboard
Subject: "Interview request" → followup_required
Subject: "Position filled" → rejection

Output ONLY the JSON. Do NOT extract job details.`

// Classifier is an implementation of the core.Classifier interface using a
// local Ollama server through its OpenAI-compatible API.
type Classifier struct {
	client            *openai.Client
	model             string
	maxTokens         int
	defaultConfidence float64
	logger            *zap.Logger
	textProcessor     *utils.TextProcessor
}

// NewClassifier creates a new Ollama classifier.
func NewClassifier(
	client *openai.Client,
	model string,
	maxTokens int,
	defaultConfidence float64,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Classifier {
	return &Classifier{
		client:            client,
		model:             model,
		maxTokens:         maxTokens,
		defaultConfidence: defaultConfidence,
		logger:            logger,
		textProcessor:     textProcessor,
	}
}

// Classify sends the email to Ollama and normalizes the reply. Long bodies
// are head+tail truncated so the classification cues at both ends survive
// the small context window.
func (c *Classifier) Classify(ctx context.Context, subject, body string) (*core.ClassificationResult, error) {
	c.logger.Debug("Classifying with Ollama", zap.String("model", c.model))

	truncated := c.textProcessor.SmartTruncate(body, truncateThreshold, truncateHead, truncateTail)

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: core.UserMessage(subject, truncated)},
		},
		// Tight ceiling: enough for one JSON object, not enough for the
		// model to start extracting job listings.
		MaxTokens: c.maxTokens,
		// A literal 0 is dropped by omitempty and the API then defaults
		// to 1; the smallest nonzero value keeps the output deterministic.
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ollama chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: %s", core.ErrEmptyResponse, providerName)
	}

	return core.ParseResponse(resp.Choices[0].Message.Content, providerName, c.model, c.defaultConfidence, c.logger)
}
