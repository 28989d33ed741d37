package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM provider names
const (
	LLMProviderOpenAI  = "openai"
	LLMProviderBedrock = "bedrock"
)

// Market data provider names
const (
	MarketDataYahoo  = "yahoo"
	MarketDataAlpaca = "alpaca"
)

// Config holds all application configuration
type Config struct {
	// LLM configuration
	LLM     LLMConfig
	OpenAI  OpenAIConfig
	Bedrock BedrockConfig

	// Market data configuration
	MarketData   MarketDataConfig
	Alpaca       AlpacaConfig
	AlphaVantage AlphaVantageConfig

	// Agent configuration
	Agent AgentConfig

	// HTTP configuration
	HTTP HTTPConfig

	// Logging configuration
	Log LogConfig
}

// LLMConfig selects the chat model provider and its sampling settings
type LLMConfig struct {
	Provider     string
	DefaultModel string
	Temperature  float64
	MaxTokens    int
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// BedrockConfig holds AWS Bedrock configuration
type BedrockConfig struct {
	Region  string
	ModelID string
}

// MarketDataConfig selects the market data provider
type MarketDataConfig struct {
	Provider    string
	HistoryDays int
	YahooURL    string // empty uses query2.finance.yahoo.com
}

// AlpacaConfig holds Alpaca API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	DataURL   string // empty uses the Alpaca default
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	APIKey  string
	BaseURL string
}

// AgentConfig bounds a single recommendation episode
type AgentConfig struct {
	MaxIterations  int
	TimeoutSeconds int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Host               string
	Port               int
	CORSAllowedOrigins string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Format string // text or json
	Level  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnvString("LLM_PROVIDER", LLMProviderOpenAI)),
			DefaultModel: os.Getenv("DEFAULT_MODEL"),
			Temperature:  getEnvFloatRange("LLM_TEMPERATURE", 0.1, 0, 2),
			MaxTokens:    getEnvInt("OPENAI_MAX_TOKENS", 1024),
		},
		OpenAI: OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		Bedrock: BedrockConfig{
			Region:  getEnvString("AWS_REGION", "us-east-1"),
			ModelID: getEnvString("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),
		},
		MarketData: MarketDataConfig{
			Provider:    strings.ToLower(getEnvString("MARKET_DATA_PROVIDER", MarketDataYahoo)),
			HistoryDays: getEnvInt("HISTORY_DAYS", 30),
			YahooURL:    os.Getenv("YAHOO_BASE_URL"),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
			DataURL:   os.Getenv("ALPACA_DATA_URL"),
		},
		AlphaVantage: AlphaVantageConfig{
			APIKey:  os.Getenv("ALPHA_VANTAGE_API_KEY"),
			BaseURL: os.Getenv("ALPHA_VANTAGE_BASE_URL"),
		},
		Agent: AgentConfig{
			MaxIterations:  getEnvInt("AGENT_MAX_ITERATIONS", 10),
			TimeoutSeconds: getEnvInt("AGENT_TIMEOUT_SECONDS", 120),
		},
		HTTP: HTTPConfig{
			Host:               getEnvString("HOST", "0.0.0.0"),
			Port:               getEnvInt("PORT", 8000),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
		},
		Log: LogConfig{
			Format: strings.ToLower(getEnvString("LOG_FORMAT", "text")),
			Level:  strings.ToLower(getEnvString("LOG_LEVEL", "info")),
		},
	}

	if cfg.LLM.DefaultModel == "" {
		cfg.LLM.DefaultModel = defaultModelFor(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultModelFor returns the fallback model for the configured provider
func defaultModelFor(cfg *Config) string {
	if cfg.LLM.Provider == LLMProviderBedrock {
		return cfg.Bedrock.ModelID
	}
	return "gpt-3.5-turbo"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case LLMProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=%s", LLMProviderOpenAI)
		}
	case LLMProviderBedrock:
		if c.Bedrock.Region == "" {
			return fmt.Errorf("AWS_REGION is required when LLM_PROVIDER=%s", LLMProviderBedrock)
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", LLMProviderOpenAI, LLMProviderBedrock, c.LLM.Provider)
	}

	switch c.MarketData.Provider {
	case MarketDataYahoo:
	case MarketDataAlpaca:
		if !c.HasAlpaca() {
			return fmt.Errorf("ALPACA_API_KEY and ALPACA_API_SECRET are required when MARKET_DATA_PROVIDER=%s", MarketDataAlpaca)
		}
	default:
		return fmt.Errorf("MARKET_DATA_PROVIDER must be %q or %q, got %q", MarketDataYahoo, MarketDataAlpaca, c.MarketData.Provider)
	}

	if c.MarketData.HistoryDays <= 0 {
		return fmt.Errorf("HISTORY_DAYS must be positive, got %d", c.MarketData.HistoryDays)
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("AGENT_MAX_ITERATIONS must be positive, got %d", c.Agent.MaxIterations)
	}
	if c.Agent.TimeoutSeconds <= 0 {
		return fmt.Errorf("AGENT_TIMEOUT_SECONDS must be positive, got %d", c.Agent.TimeoutSeconds)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

// HasAlphaVantage returns true if Alpha Vantage configuration is available
func (c *Config) HasAlphaVantage() bool {
	return c.AlphaVantage.APIKey != ""
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// AgentTimeout returns the wall-clock bound for one agent episode
func (c *Config) AgentTimeout() time.Duration {
	return time.Duration(c.Agent.TimeoutSeconds) * time.Second
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatRange(key string, defaultValue, minVal, maxVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= minVal && parsed <= maxVal {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:     LLMProviderOpenAI,
			DefaultModel: "gpt-3.5-turbo",
			Temperature:  0.1,
			MaxTokens:    1024,
		},
		OpenAI: OpenAIConfig{
			APIKey: "test-api-key",
		},
		Bedrock: BedrockConfig{
			Region:  "us-east-1",
			ModelID: "anthropic.claude-3-haiku-20240307-v1:0",
		},
		MarketData: MarketDataConfig{
			Provider:    MarketDataYahoo,
			HistoryDays: 30,
		},
		Agent: AgentConfig{
			MaxIterations:  10,
			TimeoutSeconds: 120,
		},
		HTTP: HTTPConfig{
			Host:               "0.0.0.0",
			Port:               8000,
			CORSAllowedOrigins: "*",
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}
