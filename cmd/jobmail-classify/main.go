package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/config"
	"github.com/mikey/jobmail/internal/core"
	"github.com/mikey/jobmail/internal/factory"
	"github.com/mikey/jobmail/internal/logging"
	"github.com/mikey/jobmail/internal/utils"
)

var (
	// LLM provider flags
	provider  = flag.String("provider", "openai", "LLM provider (openai, ollama, gemini, bedrock)")
	maxTokens = flag.Int("max-tokens", 500, "Maximum tokens for LLM response")

	// OpenAI flags
	openaiAPIKey = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModel  = flag.String("openai-model", "gpt-4", "OpenAI model name")

	// Ollama flags
	ollamaBaseURL = flag.String("ollama-base-url", "http://localhost:11434/v1", "Base URL of the Ollama OpenAI-compatible API")
	ollamaModel   = flag.String("ollama-model", "llama2", "Ollama model name")

	// Gemini flags
	geminiAPIKey = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModel  = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Classification flags
	threshold = flag.Float64("threshold", 0.8, "Confidence threshold for taking action")

	// Input flags
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Use the config file instead of command line flags")
)

func main() {
	flag.Parse()

	var cfg *config.Config
	var err error

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration from file if specified
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		// Create config from command line flags
		cfg = createConfigFromFlags()
	}

	// Initialize classifier
	textProcessor := utils.NewTextProcessor(logger)
	classifierFactory := factory.NewClassifierFactory(cfg, logger, textProcessor)
	classifier, err := classifierFactory.CreateClassifier()
	if err != nil {
		logger.Fatal("Failed to create classifier", zap.Error(err))
	}

	// Read email from file or stdin
	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	// Parse email
	msg, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	from := msg.Header.Get("From")
	subject := msg.Header.Get("Subject")

	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		logger.Fatal("Failed to read email body", zap.Error(err))
	}
	body := textProcessor.SanitizeUTF8(string(bodyBytes))

	// Print email summary
	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", from)
	fmt.Printf("Subject: %s\n", subject)
	fmt.Printf("Body length: %d bytes\n", len(body))
	fmt.Printf("\n")

	// Classify email
	fmt.Printf("=== Analysis ===\n")
	fmt.Printf("Provider: %s\n", cfg.GetString("llm.provider"))
	fmt.Printf("Confidence threshold: %.2f\n", cfg.GetFloat64("classification.confidence_threshold"))

	startTime := time.Now()
	result, err := classifier.Classify(context.Background(), subject, body)
	if err != nil {
		logger.Fatal("Failed to classify email", zap.Error(err))
	}
	duration := time.Since(startTime)

	labelsCfg := cfg.GetLabels()
	action := core.Decide(result.Category, result.Confidence, cfg.GetFloat64("classification.confidence_threshold"), core.LabelSet{
		Acknowledged: labelsCfg.Acknowledged,
		Rejected:     labelsCfg.Rejected,
		Followup:     labelsCfg.Followup,
		Jobboard:     labelsCfg.Jobboard,
	})

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Category: %s\n", result.Category)
	fmt.Printf("Confidence: %.4f\n", result.Confidence)
	if result.Reasoning != "" {
		fmt.Printf("Reasoning: %s\n", result.Reasoning)
	}
	fmt.Printf("Model used: %s/%s\n", result.Provider, result.Model)
	if action.IsNoop() {
		fmt.Printf("Action: none\n")
	} else {
		fmt.Printf("Action: label %q (archive: %t)\n", action.Label, action.Archive)
	}
	fmt.Printf("Processing time: %v\n", duration)

	// Close any resources that need closing
	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	// Set LLM provider
	v.Set("llm.provider", *provider)

	// Set provider-specific configuration
	switch *provider {
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model", *openaiModel)
		v.Set("openai.max_tokens", *maxTokens)
	case "ollama":
		v.Set("ollama.base_url", *ollamaBaseURL)
		v.Set("ollama.model", *ollamaModel)
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.model", *geminiModel)
		v.Set("gemini.max_tokens", *maxTokens)
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
		v.Set("bedrock.max_tokens", *maxTokens)
	}

	// Set confidence threshold
	v.Set("classification.confidence_threshold", *threshold)

	return config.NewFromViper(v)
}
