package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/core"
)

const providerName = "bedrock"

// anthropicVersion is the Bedrock messages-API revision for Claude models.
const anthropicVersion = "bedrock-2023-05-31"

// Classifier is an implementation of the core.Classifier interface using
// Amazon Bedrock. Request and response shapes differ per model family, so
// both are dispatched on the model id prefix.
type Classifier struct {
	client            *bedrockruntime.Client
	modelID           string
	maxTokens         int
	defaultConfidence float64
	logger            *zap.Logger
}

// NewClassifier creates a new Bedrock classifier.
func NewClassifier(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	defaultConfidence float64,
	logger *zap.Logger,
) *Classifier {
	return &Classifier{
		client:            client,
		modelID:           modelID,
		maxTokens:         maxTokens,
		defaultConfidence: defaultConfidence,
		logger:            logger,
	}
}

// Classify sends the email to the configured Bedrock model and normalizes
// the reply.
func (c *Classifier) Classify(ctx context.Context, subject, body string) (*core.ClassificationResult, error) {
	c.logger.Debug("Classifying with Bedrock", zap.String("model_id", c.modelID))

	payload, err := c.buildPayload(core.UserMessage(subject, body))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	responseText, err := c.extractText(resp.Body)
	if err != nil {
		return nil, err
	}
	if responseText == "" {
		return nil, fmt.Errorf("%w: %s %s", core.ErrEmptyResponse, providerName, c.modelID)
	}

	return core.ParseResponse(responseText, providerName, c.modelID, c.defaultConfidence, c.logger)
}

// buildPayload shapes the request for the model family.
func (c *Classifier) buildPayload(userMessage string) ([]byte, error) {
	switch {
	case c.isAnthropicModel():
		return json.Marshal(map[string]interface{}{
			"anthropic_version": anthropicVersion,
			"max_tokens":        c.maxTokens,
			"temperature":       0,
			"system":            core.SystemPrompt,
			"messages": []map[string]interface{}{
				{"role": "user", "content": userMessage},
			},
		})
	case c.isAmazonTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": core.SystemPrompt + "\n\n" + userMessage,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   0,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      core.SystemPrompt + "\n\n" + userMessage,
			"max_tokens":  c.maxTokens,
			"temperature": 0,
		})
	}
}

// extractText pulls the raw reply text out of the model family's envelope.
func (c *Classifier) extractText(body []byte) (string, error) {
	switch {
	case c.isAnthropicModel():
		var claudeResp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		for _, part := range claudeResp.Content {
			if part.Type == "text" && part.Text != "" {
				return part.Text, nil
			}
		}
		return "", nil
	case c.isAmazonTitanModel():
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", nil
		}
		return titanResp.Results[0].OutputText, nil
	default:
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		switch {
		case genericResp.Output != "":
			return genericResp.Output, nil
		case genericResp.Text != "":
			return genericResp.Text, nil
		case genericResp.Response != "":
			return genericResp.Response, nil
		default:
			return string(body), nil
		}
	}
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *Classifier) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *Classifier) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
