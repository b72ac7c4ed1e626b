package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Backend and mode values accepted by the configuration.
const (
	StateBackendMemory = "memory"
	StateBackendSQLite = "sqlite"

	CatalogBackendMongo = "mongo"
	CatalogBackendFile  = "file"

	LLMProviderOpenAI    = "openai"
	LLMProviderAnthropic = "anthropic"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment    string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPListenAddr string `envconfig:"HTTP_LISTEN_ADDR" default:":8080"`

	// Chat guardrails
	MaxMessagesPerSession int           `envconfig:"CHAT_MAX_MESSAGES_PER_SESSION" default:"20"`
	MaxMessagesPerMinute  int           `envconfig:"CHAT_MAX_MESSAGES_PER_MINUTE" default:"8"`
	OffTopicThreshold     int           `envconfig:"CHAT_OFFTOPIC_BLOCK_THRESHOLD" default:"3"`
	BlockTTL              time.Duration `envconfig:"CHAT_BLOCK_TTL" default:"30m"` // 0 keeps the block until the state expires

	// Conversation state
	StateBackend       string        `envconfig:"CHAT_STATE_BACKEND" default:"memory"`
	StateTTL           time.Duration `envconfig:"CHAT_STATE_TTL" default:"30m"`
	StateCapacity      int           `envconfig:"CHAT_STATE_CAPACITY" default:"100000"`
	StateSQLitePath    string        `envconfig:"CHAT_STATE_SQLITE_PATH" default:"storefront-chat.db"`
	StateSweepInterval time.Duration `envconfig:"CHAT_STATE_SWEEP_INTERVAL" default:"5m"`
	EventRetention     time.Duration `envconfig:"CHAT_EVENT_RETENTION" default:"720h"`

	// Catalog
	CatalogBackend      string        `envconfig:"CATALOG_BACKEND" default:"mongo"`
	MongoURI            string        `envconfig:"MONGO_URI"`
	MongoDatabase       string        `envconfig:"MONGO_DATABASE" default:"storehouse"`
	CatalogFixturesPath string        `envconfig:"CATALOG_FIXTURES_PATH"`
	CatalogTimeout      time.Duration `envconfig:"CATALOG_TIMEOUT" default:"5s"`
	CatalogRetries      int           `envconfig:"CATALOG_RETRIES" default:"2"`

	// Language model
	LLMProvider     string        `envconfig:"LLM_PROVIDER" default:"openai"`
	LLMModel        string        `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMMaxTokens    int           `envconfig:"LLM_MAX_TOKENS" default:"300"`
	LLMTemperature  float64       `envconfig:"LLM_TEMPERATURE" default:"0.8"`
	LLMTimeout      time.Duration `envconfig:"LLM_TIMEOUT" default:"15s"`
	OpenAIAPIKey    string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string        `envconfig:"OPENAI_BASE_URL"`
	AnthropicAPIKey string        `envconfig:"ANTHROPIC_API_KEY"`

	// Language table override (YAML). Empty uses the embedded table.
	LanguagesFile string `envconfig:"LANGUAGES_FILE"`

	// Alerts
	SlackAlertWebhookURL string `envconfig:"SLACK_ALERT_WEBHOOK_URL"`

	// Admin API
	AdminAuthMode  string `envconfig:"ADMIN_AUTH_MODE" default:"api-key"`
	AdminAPIKey    string `envconfig:"ADMIN_API_KEY"`
	AdminJWTSecret string `envconfig:"ADMIN_JWT_SECRET"`

	// HTTP edge
	CORSOrigins      string `envconfig:"CORS_ORIGINS"`
	IPRateLimitRPS   int    `envconfig:"IP_RATE_LIMIT_RPS" default:"20"`
	IPRateLimitBurst int    `envconfig:"IP_RATE_LIMIT_BURST" default:"40"`
}

// LLMEnabled returns true if the selected provider has an API key.
// Without one the pipeline answers with the static per-language fallback.
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey() != ""
}

// LLMAPIKey returns the API key for the selected provider.
func (c *Config) LLMAPIKey() string {
	switch strings.ToLower(c.LLMProvider) {
	case LLMProviderAnthropic:
		return c.AnthropicAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// SlackAlertsEnabled returns true if a Slack incoming webhook is configured.
func (c *Config) SlackAlertsEnabled() bool {
	return c.SlackAlertWebhookURL != ""
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Validate checks enum values and cross-field requirements.
func (c *Config) Validate() error {
	switch c.StateBackend {
	case StateBackendMemory, StateBackendSQLite:
	default:
		return fmt.Errorf("invalid CHAT_STATE_BACKEND %q, expected memory or sqlite", c.StateBackend)
	}

	switch c.CatalogBackend {
	case CatalogBackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when CATALOG_BACKEND=mongo")
		}
	case CatalogBackendFile:
		if c.CatalogFixturesPath == "" {
			return fmt.Errorf("CATALOG_FIXTURES_PATH is required when CATALOG_BACKEND=file")
		}
	default:
		return fmt.Errorf("invalid CATALOG_BACKEND %q, expected mongo or file", c.CatalogBackend)
	}

	switch strings.ToLower(c.LLMProvider) {
	case LLMProviderOpenAI, LLMProviderAnthropic:
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q, expected openai or anthropic", c.LLMProvider)
	}

	switch c.AdminAuthMode {
	case "api-key", "none":
	case "jwt":
		if c.AdminJWTSecret == "" {
			return fmt.Errorf("ADMIN_JWT_SECRET is required when ADMIN_AUTH_MODE=jwt")
		}
	default:
		return fmt.Errorf("invalid ADMIN_AUTH_MODE %q, expected api-key, jwt or none", c.AdminAuthMode)
	}

	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("invalid LLM_TEMPERATURE %v, expected 0 to 2", c.LLMTemperature)
	}

	if c.MaxMessagesPerSession < 1 || c.MaxMessagesPerMinute < 1 || c.OffTopicThreshold < 1 {
		return fmt.Errorf("chat limits must be positive")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	return &cfg, nil
}
