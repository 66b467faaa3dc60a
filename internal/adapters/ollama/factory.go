package ollama

import (
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/config"
	"github.com/mikey/jobmail/internal/core"
	"github.com/mikey/jobmail/internal/utils"
)

// Factory creates Ollama classifiers
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for Ollama classifiers
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates a new Ollama classifier. Ollama needs no real
// API key; the placeholder satisfies the OpenAI-compatible endpoint.
func (f *Factory) CreateClassifier() (core.Classifier, error) {
	ollamaCfg := f.cfg.GetOllama()

	clientCfg := openai.DefaultConfig("ollama")
	clientCfg.BaseURL = ollamaCfg.BaseURL
	client := openai.NewClientWithConfig(clientCfg)

	threshold := f.cfg.GetClassification().ConfidenceThreshold

	return NewClassifier(client, ollamaCfg.Model, ollamaCfg.MaxTokens, threshold, f.logger, f.textProcessor), nil
}
