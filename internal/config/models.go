package config

// LLMConfig represents the configuration for the LLM provider selection
type LLMConfig struct {
	Provider string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// OllamaConfig represents the configuration for a local Ollama server,
// reached through its OpenAI-compatible API
type OllamaConfig struct {
	BaseURL   string
	Model     string
	MaxTokens int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region    string
	ModelID   string
	MaxTokens int
}

// GmailConfig represents the Gmail OAuth2 file locations
type GmailConfig struct {
	CredentialsFile string
	TokenFile       string
}

// ClassificationConfig represents the classification tuning values
type ClassificationConfig struct {
	ConfidenceThreshold float64
	BatchSize           int
}

// LabelsConfig represents the mailbox label names per actionable category
type LabelsConfig struct {
	Acknowledged string
	Rejected     string
	Followup     string
	Jobboard     string
}

// ProcessingConfig represents the batch processing settings
type ProcessingConfig struct {
	Workers       int
	DryRun        bool
	IgnoreSenders []string
}

// LedgerConfig represents the processed-email store settings
type LedgerConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// SMTPConfig represents the optional SMTP intake settings
type SMTPConfig struct {
	ListenAddress string
	Domain        string
	RelayEnabled  bool
	RelayAddress  string
	RelayPort     int
}

// GetLLM returns the LLM provider selection
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:    c.GetString("openai.api_key"),
		Model:     c.GetString("openai.model"),
		MaxTokens: c.GetInt("openai.max_tokens"),
	}
}

// GetOllama returns the Ollama configuration
func (c *Config) GetOllama() OllamaConfig {
	return OllamaConfig{
		BaseURL:   c.GetString("ollama.base_url"),
		Model:     c.GetString("ollama.model"),
		MaxTokens: c.GetInt("ollama.max_tokens"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:    c.GetString("gemini.api_key"),
		Model:     c.GetString("gemini.model"),
		MaxTokens: c.GetInt("gemini.max_tokens"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:    c.GetString("bedrock.region"),
		ModelID:   c.GetString("bedrock.model_id"),
		MaxTokens: c.GetInt("bedrock.max_tokens"),
	}
}

// GetGmail returns the Gmail configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		CredentialsFile: c.GetString("gmail.credentials_file"),
		TokenFile:       c.GetString("gmail.token_file"),
	}
}

// GetClassification returns the classification configuration
func (c *Config) GetClassification() ClassificationConfig {
	return ClassificationConfig{
		ConfidenceThreshold: c.GetFloat64("classification.confidence_threshold"),
		BatchSize:           c.GetInt("classification.batch_size"),
	}
}

// GetLabels returns the label configuration
func (c *Config) GetLabels() LabelsConfig {
	return LabelsConfig{
		Acknowledged: c.GetString("labels.acknowledged"),
		Rejected:     c.GetString("labels.rejected"),
		Followup:     c.GetString("labels.followup"),
		Jobboard:     c.GetString("labels.jobboard"),
	}
}

// GetProcessing returns the processing configuration
func (c *Config) GetProcessing() ProcessingConfig {
	return ProcessingConfig{
		Workers:       c.GetInt("processing.workers"),
		DryRun:        c.GetBool("processing.dry_run"),
		IgnoreSenders: c.GetStringSlice("processing.ignore_senders"),
	}
}

// GetLedger returns the ledger configuration
func (c *Config) GetLedger() LedgerConfig {
	return LedgerConfig{
		Type:       c.GetString("ledger.type"),
		SQLitePath: c.GetString("ledger.sqlite_path"),
		MySQLDSN:   c.GetString("ledger.mysql_dsn"),
	}
}

// GetSMTP returns the SMTP intake configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		ListenAddress: c.GetString("smtp.listen_address"),
		Domain:        c.GetString("smtp.domain"),
		RelayEnabled:  c.GetBool("smtp.relay.enabled"),
		RelayAddress:  c.GetString("smtp.relay.address"),
		RelayPort:     c.GetInt("smtp.relay.port"),
	}
}
