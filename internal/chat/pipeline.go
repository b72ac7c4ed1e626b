// Package chat runs a storefront chat message through the guardrails, the store context and the
// responder, and validates generated answers before they reach the shopper.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/storehouse-ng/storefront-chat/internal/alert"
	"github.com/storehouse-ng/storefront-chat/internal/catalog"
	"github.com/storehouse-ng/storefront-chat/internal/convstate"
	cerrors "github.com/storehouse-ng/storefront-chat/internal/errors"
	"github.com/storehouse-ng/storefront-chat/internal/guard"
	"github.com/storehouse-ng/storefront-chat/internal/language"
	"github.com/storehouse-ng/storefront-chat/internal/metrics"
	"github.com/storehouse-ng/storefront-chat/internal/models"
	"github.com/storehouse-ng/storefront-chat/internal/requestid"
	"github.com/storehouse-ng/storefront-chat/internal/responder"
	"github.com/storehouse-ng/storefront-chat/internal/validate"
)

// Result reasons besides the limiter's.
const (
	ReasonSpam             = "spam"
	ReasonOffTopic         = "off_topic"
	ReasonStoreNotFound    = "store_not_found"
	ReasonStoreUnavailable = "store_unavailable"
)

// StoreNotFoundResponse is returned for unknown or private stores.
const StoreNotFoundResponse = "Sorry, this store is not available right now."

const unnamedStore = "our store"

// Request is one inbound shopper message.
type Request struct {
	Message   string `json:"message"`
	StoreSlug string `json:"store_slug"`
	SessionID string `json:"session_id,omitempty"`
}

// Result is the answer returned to the widget.
type Result struct {
	Response          string  `json:"response"`
	Blocked           bool    `json:"blocked"`
	Reason            string  `json:"reason,omitempty"`
	Source            string  `json:"source,omitempty"`
	Confidence        float64 `json:"confidence"`
	Language          string  `json:"language,omitempty"`
	OffTopicCategory  string  `json:"off_topic_category,omitempty"`
	ValidationWarning string  `json:"validation_warning,omitempty"`
	WaitSeconds       int     `json:"wait_seconds,omitempty"`
	StoreNotFound     bool    `json:"store_not_found,omitempty"`
	SessionID         string  `json:"session_id"`
}

// StoreLoader loads a store context by slug.
type StoreLoader interface {
	Load(ctx context.Context, slug string) (*catalog.StoreContext, error)
}

// EventRecorder appends to the chat event log.
type EventRecorder interface {
	RecordEvent(ctx context.Context, ev models.ChatEvent) error
}

// Config holds the per-session limits.
type Config struct {
	MaxMessagesPerSession int
	MaxMessagesPerMinute  int
}

// Deps are the collaborators of a Pipeline. Metrics, Alerts and Events are optional.
type Deps struct {
	Limiter   *convstate.Limiter
	Stores    StoreLoader
	Responder *responder.Generator
	Metrics   *metrics.Metrics
	Alerts    alert.Notifier
	Events    EventRecorder
}

// Pipeline handles chat messages. It is safe for concurrent use.
type Pipeline struct {
	cfg    Config
	deps   Deps
	langs  *language.Table
	logger zerolog.Logger
}

// New creates a Pipeline.
func New(cfg Config, deps Deps, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		deps:   deps,
		langs:  deps.Responder.Languages(),
		logger: logger.With().Str("component", "chat").Logger(),
	}
}

// trace collects what the event log and the metrics need about one request.
type trace struct {
	start    time.Time
	req      Request
	outcome  models.Outcome
	category string
}

// HandleChat answers one message. It never fails: every path ends in a response string.
func (p *Pipeline) HandleChat(ctx context.Context, req Request) Result {
	tr := &trace{start: time.Now(), req: req}
	res := p.handle(ctx, req, tr)
	res.SessionID = req.SessionID
	p.finish(ctx, tr, res)
	return res
}

func (p *Pipeline) handle(ctx context.Context, req Request, tr *trace) Result {
	if reason, spam := guard.CheckSpam(req.Message); spam {
		tr.outcome = models.OutcomeBlocked
		tr.category = string(reason)
		p.record(func(m *metrics.Metrics) { m.RecordBlock("spam", string(reason)) })
		return Result{
			Response:   guard.SpamResponse,
			Blocked:    true,
			Reason:     ReasonSpam,
			Source:     string(responder.SourceGuardrail),
			Confidence: responder.ConfidenceCanned,
		}
	}

	decision, err := p.deps.Limiter.CheckRateLimit(ctx, req.SessionID, p.cfg.MaxMessagesPerSession, p.cfg.MaxMessagesPerMinute)
	if err != nil {
		p.stateError("rate_limit", req, err)
		decision = convstate.Decision{Allowed: true}
	}
	if !decision.Allowed {
		return p.rateLimited(ctx, req, decision, tr)
	}

	sc, err := p.deps.Stores.Load(ctx, req.StoreSlug)
	if err != nil {
		if errors.Is(err, catalog.ErrStoreNotFound) {
			tr.outcome = models.OutcomeStoreNotFound
			return Result{
				Response:      StoreNotFoundResponse,
				Reason:        ReasonStoreNotFound,
				StoreNotFound: true,
			}
		}
		p.logger.Error().Err(err).Str("store", req.StoreSlug).Str("session_id", req.SessionID).Msg("store context load failed")
		p.record(func(m *metrics.Metrics) { m.RecordUpstreamError("catalog", errorType(err)) })
		tr.outcome = models.OutcomeFallback
		def := p.langs.DefaultTag()
		return Result{
			Response:   p.langs.Fallback(def, ""),
			Reason:     ReasonStoreUnavailable,
			Source:     string(responder.SourceFallback),
			Confidence: responder.ConfidenceFallback,
			Language:   string(def),
		}
	}

	if category, off := guard.CheckOffTopic(req.Message); off {
		return p.offTopic(ctx, req, sc, category, tr)
	}

	lang := p.langs.Detect(req.Message)
	p.record(func(m *metrics.Metrics) { m.RecordLanguage(string(lang)) })

	reply := p.deps.Responder.Generate(ctx, req.Message, sc, lang, req.SessionID)
	if reply.Cause != nil && !errors.Is(reply.Cause, responder.ErrNoProvider) {
		p.record(func(m *metrics.Metrics) { m.RecordUpstreamError("llm", errorType(reply.Cause)) })
	}

	res := Result{
		Response:   reply.Text,
		Source:     string(reply.Source),
		Confidence: reply.Confidence,
		Language:   string(reply.Language),
	}
	tr.outcome = models.OutcomeAnswered
	if reply.Source == responder.SourceFallback {
		tr.outcome = models.OutcomeFallback
	}

	if reply.Source == responder.SourceAI {
		p.validate(req, sc, reply, &res, tr)
	}
	return res
}

func (p *Pipeline) rateLimited(ctx context.Context, req Request, d convstate.Decision, tr *trace) Result {
	business, whatsapp := unnamedStore, ""
	if sc, err := p.deps.Stores.Load(ctx, req.StoreSlug); err == nil {
		if sc.Profile.BusinessName != "" {
			business = sc.Profile.BusinessName
		}
		whatsapp = sc.Profile.WhatsApp
	}

	tr.outcome = models.OutcomeRateLimited
	tr.category = d.Reason
	p.record(func(m *metrics.Metrics) { m.RecordBlock("rate_limit", d.Reason) })
	return Result{
		Response:    guard.RateLimitResponse(d.Reason, business, whatsapp, d.WaitSeconds),
		Blocked:     true,
		Reason:      d.Reason,
		Source:      string(responder.SourceGuardrail),
		Confidence:  responder.ConfidenceCanned,
		WaitSeconds: d.WaitSeconds,
	}
}

func (p *Pipeline) offTopic(ctx context.Context, req Request, sc *catalog.StoreContext, category guard.Category, tr *trace) Result {
	blocked, err := p.deps.Limiter.TrackOffTopicAttempt(ctx, req.SessionID)
	if err != nil {
		p.stateError("track_off_topic", req, err)
		blocked = false
	}

	tr.outcome = models.OutcomeOffTopic
	tr.category = string(category)
	p.record(func(m *metrics.Metrics) { m.RecordBlock("off_topic", string(category)) })

	business := sc.Profile.BusinessName
	if business == "" {
		business = unnamedStore
	}
	res := Result{
		Response:         guard.OffTopicResponse(category, business, sc.Profile.WhatsApp),
		Blocked:          blocked,
		Reason:           ReasonOffTopic,
		Source:           string(responder.SourceGuardrail),
		Confidence:       responder.ConfidenceCanned,
		OffTopicCategory: string(category),
	}
	if !blocked {
		return res
	}

	// Blocked sessions are turned away by the limiter before reaching here, so this is the
	// strike that blocked it.
	tr.outcome = models.OutcomeBlocked
	res.Response = guard.RateLimitResponse(guard.ReasonBlocked, business, sc.Profile.WhatsApp, 0)
	p.record(func(m *metrics.Metrics) { m.RecordSessionBlocked() })
	p.alert(alert.Alert{
		Level:     alert.LevelWarning,
		Title:     "Chat session blocked",
		Message:   "Repeated off-topic messages on " + business + "'s storefront.",
		Source:    "chat",
		StoreSlug: req.StoreSlug,
		SessionID: req.SessionID,
		Fields:    map[string]string{"last_category": string(category)},
	})
	return res
}

func (p *Pipeline) validate(req Request, sc *catalog.StoreContext, reply responder.Reply, res *Result, tr *trace) {
	v := validate.Validate(reply.Text, req.Message, sc.Products, sc.Profile, validate.WithPolicies(sc.Policies))
	if v.Valid {
		return
	}

	fixed := v.FixedResponse
	if strings.TrimSpace(fixed) == "" {
		fixed = p.langs.Fallback(reply.Language, sc.Profile.WhatsApp)
	}
	res.Response = fixed
	res.Source = string(responder.SourceAIValidated)
	res.Confidence = responder.ConfidenceValidated
	res.ValidationWarning = v.Reason
	tr.category = v.Category()

	p.logger.Warn().
		Str("store", req.StoreSlug).
		Str("session_id", req.SessionID).
		Str("reason", v.Reason).
		Int("response_len", len(reply.Text)).
		Msg("generated reply replaced after validation")
	p.record(func(m *metrics.Metrics) { m.RecordValidationFailure(v.Category()) })
	p.alert(alert.Alert{
		Level:     alert.LevelInfo,
		Title:     "Chat reply replaced",
		Message:   "A generated answer did not match the catalog and was replaced.",
		Source:    "validate",
		StoreSlug: req.StoreSlug,
		SessionID: req.SessionID,
		Fields:    map[string]string{"reason": v.Reason},
	})
}

// finish logs, counts and records the outcome.
func (p *Pipeline) finish(ctx context.Context, tr *trace, res Result) {
	elapsed := time.Since(tr.start)
	source := res.Source
	if source == "" {
		source = "none"
	}

	p.logger.Info().
		Str("request_id", requestid.FromContext(ctx)).
		Str("store", tr.req.StoreSlug).
		Str("session_id", tr.req.SessionID).
		Int("message_len", len(tr.req.Message)).
		Str("outcome", string(tr.outcome)).
		Str("reason", res.Reason).
		Str("source", source).
		Str("language", res.Language).
		Dur("elapsed", elapsed).
		Msg("chat handled")
	p.record(func(m *metrics.Metrics) { m.RecordChat(string(tr.outcome), source, elapsed.Seconds()) })

	if p.deps.Events == nil {
		return
	}
	ev := models.ChatEvent{
		ID:                uuid.NewString(),
		RequestID:         requestid.FromContext(ctx),
		SessionID:         tr.req.SessionID,
		StoreSlug:         tr.req.StoreSlug,
		Outcome:           tr.outcome,
		Reason:            res.Reason,
		Source:            res.Source,
		Language:          res.Language,
		Category:          tr.category,
		ValidationWarning: res.ValidationWarning,
		Confidence:        res.Confidence,
		MessageLength:     len(tr.req.Message),
		LatencyMs:         elapsed.Milliseconds(),
		CreatedAt:         tr.start.UTC(),
	}
	// The shopper may have gone; the log entry is still wanted.
	if err := p.deps.Events.RecordEvent(context.WithoutCancel(ctx), ev); err != nil {
		p.stateError("record_event", tr.req, err)
	}
}

func (p *Pipeline) stateError(op string, req Request, err error) {
	p.logger.Error().Err(err).
		Str("op", op).
		Str("store", req.StoreSlug).
		Str("session_id", req.SessionID).
		Msg("state store failed, continuing without it")
	p.record(func(m *metrics.Metrics) { m.RecordStateError(op) })
}

func (p *Pipeline) record(fn func(m *metrics.Metrics)) {
	if p.deps.Metrics != nil {
		fn(p.deps.Metrics)
	}
}

func (p *Pipeline) alert(a alert.Alert) {
	if p.deps.Alerts == nil {
		return
	}
	if err := p.deps.Alerts.Notify(context.Background(), a); err != nil {
		p.logger.Error().Err(err).Str("title", a.Title).Msg("alert failed")
	}
}

// errorType is the metrics label for an upstream failure.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case cerrors.IsTimeout(err):
		return "timeout"
	case errors.Is(err, cerrors.ErrRateLimit):
		return "rate_limit"
	case errors.Is(err, cerrors.ErrAuthFailure):
		return "auth"
	case errors.Is(err, cerrors.ErrUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
