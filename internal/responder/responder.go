// Package responder produces the assistant's answer to a clean shopping message: a canned reply
// for trivial intents, otherwise one grounded call to the language model, with a static
// per-language fallback whenever that call cannot be made or fails.
package responder

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/storehouse-ng/storefront-chat/internal/catalog"
	"github.com/storehouse-ng/storefront-chat/internal/language"
	"github.com/storehouse-ng/storefront-chat/internal/llm"
)

// Source says where a reply came from.
type Source string

const (
	SourceFAQ         Source = "faq"
	SourceAI          Source = "ai"
	SourceAIValidated Source = "ai_validated"
	SourceFallback    Source = "fallback"
	SourceGuardrail   Source = "guardrail"
)

// Confidence levels attached to replies.
const (
	ConfidenceCanned    = 0.95
	ConfidenceFAQ       = 0.9
	ConfidenceAI        = 0.95
	ConfidenceValidated = 0.6
	ConfidenceFallback  = 0.5
)

// ErrNoProvider is the fallback cause when generation is disabled.
var ErrNoProvider = errors.New("no language model configured")

var (
	greetingIntent = regexp.MustCompile(`(?i)^(hi|hello|hey|good morning|good afternoon|good evening)$`)
	contactIntent  = regexp.MustCompile(`(?i)^(contact|phone|whatsapp|call)$`)
)

// Reply is the generator's answer.
type Reply struct {
	Text       string
	Source     Source
	Confidence float64
	Language   language.Tag
	// Cause is set on fallback replies to the reason generation was skipped or failed.
	Cause error
}

// Config bounds the generative call. Temperature is sent as given, 0 included; only a
// negative value falls back to DefaultConfig's.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultConfig matches the storefront widget's tuning: short, warm answers.
func DefaultConfig() Config {
	return Config{MaxTokens: 300, Temperature: 0.8, Timeout: 15 * time.Second}
}

// Generator answers clean messages for a store.
type Generator struct {
	provider llm.Provider
	langs    *language.Table
	cfg      Config
	logger   zerolog.Logger
}

// New creates a Generator. provider may be nil, in which case every non-trivial message gets
// the static fallback.
func New(provider llm.Provider, langs *language.Table, cfg Config, logger zerolog.Logger) *Generator {
	def := DefaultConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = def.Temperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Generator{
		provider: provider,
		langs:    langs,
		cfg:      cfg,
		logger:   logger.With().Str("component", "responder").Logger(),
	}
}

// Generate answers message using sc. It never returns an error; failures surface as a
// fallback Reply with Cause set.
func (g *Generator) Generate(ctx context.Context, message string, sc *catalog.StoreContext, lang language.Tag, sessionID string) Reply {
	if r, ok := g.Trivial(message, sc, lang); ok {
		return r
	}
	if g.provider == nil {
		return g.Fallback(lang, sc.Profile.WhatsApp, ErrNoProvider)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: BuildPrompt(sc, lang, g.langs.Instruction(lang), message),
		Messages:     []llm.Message{llm.UserMessage(message)},
		MaxTokens:    g.cfg.MaxTokens,
		Temperature:  g.cfg.Temperature,
		Model:        g.cfg.Model,
	})
	if err != nil {
		g.logger.Warn().Err(err).
			Str("session_id", sessionID).
			Str("store", sc.Slug).
			Str("provider", g.provider.Name()).
			Dur("elapsed", time.Since(start)).
			Msg("generation failed, using fallback")
		return g.Fallback(lang, sc.Profile.WhatsApp, err)
	}

	g.logger.Debug().
		Str("session_id", sessionID).
		Str("store", sc.Slug).
		Str("model", resp.Model).
		Int("out_tokens", resp.OutputTokens).
		Dur("elapsed", time.Since(start)).
		Msg("generated reply")

	return Reply{
		Text:       strings.TrimSpace(resp.Text),
		Source:     SourceAI,
		Confidence: ConfidenceAI,
		Language:   lang,
	}
}

// Trivial answers greetings, bare contact requests and exact FAQ questions without the model.
func (g *Generator) Trivial(message string, sc *catalog.StoreContext, lang language.Tag) (Reply, bool) {
	msg := strings.TrimSpace(message)

	if greetingIntent.MatchString(msg) {
		return Reply{
			Text:       g.langs.Greeting(lang, sc.Profile.BusinessName),
			Source:     SourceFAQ,
			Confidence: ConfidenceCanned,
			Language:   lang,
		}, true
	}

	if contactIntent.MatchString(msg) && sc.Profile.WhatsApp != "" {
		return Reply{
			Text:       "📱 **Contact Us:**\n\nWhatsApp/Call: " + sc.Profile.WhatsApp,
			Source:     SourceFAQ,
			Confidence: ConfidenceCanned,
			Language:   lang,
		}, true
	}

	if key := normalizeQuestion(msg); key != "" {
		for _, f := range sc.FAQ {
			if normalizeQuestion(f.Question) == key {
				return Reply{
					Text:       f.Answer,
					Source:     SourceFAQ,
					Confidence: ConfidenceFAQ,
					Language:   lang,
				}, true
			}
		}
	}
	return Reply{}, false
}

// Fallback is the static answer for lang, carrying cause for logging.
func (g *Generator) Fallback(lang language.Tag, whatsapp string, cause error) Reply {
	return Reply{
		Text:       g.langs.Fallback(lang, whatsapp),
		Source:     SourceFallback,
		Confidence: ConfidenceFallback,
		Language:   lang,
		Cause:      cause,
	}
}

// Languages exposes the table the generator answers with.
func (g *Generator) Languages() *language.Table { return g.langs }

// normalizeQuestion lower-cases s, drops punctuation and collapses whitespace.
func normalizeQuestion(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}
