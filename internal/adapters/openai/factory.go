package openai

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/config"
	"github.com/mikey/jobmail/internal/core"
)

// Factory creates OpenAI classifiers
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for OpenAI classifiers
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates a new OpenAI classifier. It fails when the API
// key is not configured.
func (f *Factory) CreateClassifier() (core.Classifier, error) {
	openaiCfg := f.cfg.GetOpenAI()
	if openaiCfg.APIKey == "" {
		return nil, fmt.Errorf("openai.api_key is required when llm.provider is %q", providerName)
	}

	client := openai.NewClient(openaiCfg.APIKey)
	threshold := f.cfg.GetClassification().ConfidenceThreshold

	return NewClassifier(client, openaiCfg.Model, openaiCfg.MaxTokens, threshold, f.logger), nil
}
