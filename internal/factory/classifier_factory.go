package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/adapters/bedrock"
	"github.com/mikey/jobmail/internal/adapters/gemini"
	"github.com/mikey/jobmail/internal/adapters/ollama"
	"github.com/mikey/jobmail/internal/adapters/openai"
	"github.com/mikey/jobmail/internal/config"
	"github.com/mikey/jobmail/internal/core"
	"github.com/mikey/jobmail/internal/utils"
)

// validProviders is the closed set of provider identifiers.
var validProviders = []string{"openai", "ollama", "gemini", "bedrock"}

// ClassifierFactory creates classifiers based on configuration
type ClassifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier constructs the classifier named by llm.provider,
// propagating each adapter's credential checks.
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	provider := f.cfg.GetLLM().Provider

	switch provider {
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateClassifier()
	case "ollama":
		return ollama.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateClassifier()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateClassifier()
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q, must be one of %v", provider, validProviders)
	}
}
