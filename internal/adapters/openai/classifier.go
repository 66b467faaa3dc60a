package openai

import (
	"context"
	"fmt"
	"math"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/core"
)

const providerName = "openai"

// Classifier is an implementation of the core.Classifier interface using
// the OpenAI chat completions API.
type Classifier struct {
	client            *openai.Client
	model             string
	maxTokens         int
	defaultConfidence float64
	logger            *zap.Logger
}

// NewClassifier creates a new OpenAI classifier.
func NewClassifier(
	client *openai.Client,
	model string,
	maxTokens int,
	defaultConfidence float64,
	logger *zap.Logger,
) *Classifier {
	return &Classifier{
		client:            client,
		model:             model,
		maxTokens:         maxTokens,
		defaultConfidence: defaultConfidence,
		logger:            logger,
	}
}

// Classify sends the email to OpenAI and normalizes the reply. The SDK
// retries transient failures itself; this layer does not.
func (c *Classifier) Classify(ctx context.Context, subject, body string) (*core.ClassificationResult, error) {
	c.logger.Debug("Classifying with OpenAI", zap.String("model", c.model))

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: core.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: core.UserMessage(subject, body)},
		},
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
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: %s", core.ErrEmptyResponse, providerName)
	}

	return core.ParseResponse(resp.Choices[0].Message.Content, providerName, c.model, c.defaultConfidence, c.logger)
}
