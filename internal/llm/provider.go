package llm

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider string // "openai" or "anthropic"
	Model    string
	APIKey   string
	BaseURL  string // OpenAI-compatible endpoints only
}

// New builds the provider named in s. It returns (nil, nil) when no API key is set,
// which callers treat as "generation disabled".
func New(s Settings, logger zerolog.Logger) (Provider, error) {
	if s.APIKey == "" {
		return nil, nil
	}
	switch strings.ToLower(s.Provider) {
	case "", "openai":
		opts := []OpenAIOption{WithOpenAILogger(logger), WithOpenAIBaseURL(s.BaseURL)}
		if s.Model != "" {
			opts = append(opts, WithOpenAIModel(s.Model))
		}
		return NewOpenAIProvider(s.APIKey, opts...), nil
	case "anthropic":
		opts := []AnthropicOption{WithAnthropicLogger(logger)}
		if s.Model != "" {
			opts = append(opts, WithAnthropicModel(s.Model))
		}
		return NewAnthropicProvider(s.APIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", s.Provider)
	}
}
