// Package config tests.
package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, 20, cfg.MaxMessagesPerSession)
	assert.Equal(t, 8, cfg.MaxMessagesPerMinute)
	assert.Equal(t, 3, cfg.OffTopicThreshold)
	assert.Equal(t, 30*time.Minute, cfg.BlockTTL)
	assert.Equal(t, 30*time.Minute, cfg.StateTTL)
	assert.Equal(t, StateBackendMemory, cfg.StateBackend)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, 300, cfg.LLMMaxTokens)
	assert.InDelta(t, 0.8, cfg.LLMTemperature, 1e-9)
	assert.Equal(t, "api-key", cfg.AdminAuthMode)
}

func TestLoad_Overrides(t *testing.T) {
	os.Clearenv()
	t.Setenv("CHAT_MAX_MESSAGES_PER_MINUTE", "5")
	t.Setenv("CHAT_BLOCK_TTL", "0s")
	t.Setenv("CHAT_STATE_BACKEND", "sqlite")
	t.Setenv("LLM_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxMessagesPerMinute)
	assert.Equal(t, time.Duration(0), cfg.BlockTTL)
	assert.Equal(t, StateBackendSQLite, cfg.StateBackend)
	assert.Equal(t, 3*time.Second, cfg.LLMTimeout)
}

func TestLoad_ZeroTemperature(t *testing.T) {
	t.Setenv("LLM_TEMPERATURE", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.LLMTemperature)
}

func TestLoadWithPrefix(t *testing.T) {
	os.Clearenv()
	t.Setenv("STOREFRONT_HTTP_LISTEN_ADDR", ":9090")
	cfg, err := LoadWithPrefix("STOREFRONT")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPListenAddr)
}

func TestLoad_InvalidDuration(t *testing.T) {
	os.Clearenv()
	t.Setenv("CHAT_STATE_TTL", "forever")
	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_EnabledFlags(t *testing.T) {
	cfg := &Config{LLMProvider: LLMProviderOpenAI}
	assert.False(t, cfg.LLMEnabled())
	assert.False(t, cfg.SlackAlertsEnabled())

	cfg.OpenAIAPIKey = "sk-test"
	assert.True(t, cfg.LLMEnabled())

	cfg.LLMProvider = LLMProviderAnthropic
	assert.False(t, cfg.LLMEnabled())
	cfg.AnthropicAPIKey = "sk-ant-test"
	assert.Equal(t, "sk-ant-test", cfg.LLMAPIKey())

	cfg.SlackAlertWebhookURL = "https://hooks.slack.com/services/T/B/X"
	assert.True(t, cfg.SlackAlertsEnabled())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StateBackend:          StateBackendMemory,
			CatalogBackend:        CatalogBackendFile,
			CatalogFixturesPath:   "stores.yaml",
			LLMProvider:           LLMProviderOpenAI,
			AdminAuthMode:         "api-key",
			MaxMessagesPerSession: 20,
			MaxMessagesPerMinute:  8,
			OffTopicThreshold:     3,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad state backend", func(c *Config) { c.StateBackend = "redis" }},
		{"mongo without uri", func(c *Config) { c.CatalogBackend = CatalogBackendMongo }},
		{"file without path", func(c *Config) { c.CatalogFixturesPath = "" }},
		{"bad provider", func(c *Config) { c.LLMProvider = "llama" }},
		{"jwt without secret", func(c *Config) { c.AdminAuthMode = "jwt" }},
		{"bad auth mode", func(c *Config) { c.AdminAuthMode = "mtls" }},
		{"zero per minute", func(c *Config) { c.MaxMessagesPerMinute = 0 }},
		{"negative temperature", func(c *Config) { c.LLMTemperature = -0.1 }},
		{"temperature too high", func(c *Config) { c.LLMTemperature = 2.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
