package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/core"
)

const providerName = "gemini"

// Classifier is an implementation of the core.Classifier interface using
// Google Gemini.
type Classifier struct {
	client            *genai.Client
	model             *genai.GenerativeModel
	modelName         string
	defaultConfidence float64
	logger            *zap.Logger
}

// NewClassifier creates a new Gemini classifier over an existing client.
func NewClassifier(
	client *genai.Client,
	modelName string,
	maxTokens int,
	defaultConfidence float64,
	logger *zap.Logger,
) *Classifier {
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(core.SystemPrompt)},
	}

	return &Classifier{
		client:            client,
		model:             model,
		modelName:         modelName,
		defaultConfidence: defaultConfidence,
		logger:            logger,
	}
}

// Close closes the underlying Gemini client.
func (c *Classifier) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify sends the email to Gemini and normalizes the reply.
func (c *Classifier) Classify(ctx context.Context, subject, body string) (*core.ClassificationResult, error) {
	c.logger.Debug("Classifying with Gemini", zap.String("model", c.modelName))

	resp, err := c.model.GenerateContent(ctx, genai.Text(core.UserMessage(subject, body)))
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrEmptyResponse, providerName)
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	if responseText == "" {
		return nil, fmt.Errorf("%w: %s", core.ErrEmptyResponse, providerName)
	}

	return core.ParseResponse(responseText, providerName, c.modelName, c.defaultConfidence, c.logger)
}
