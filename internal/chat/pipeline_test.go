package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storehouse-ng/storefront-chat/internal/alert"
	"github.com/storehouse-ng/storefront-chat/internal/catalog"
	"github.com/storehouse-ng/storefront-chat/internal/convstate"
	"github.com/storehouse-ng/storefront-chat/internal/language"
	"github.com/storehouse-ng/storefront-chat/internal/llm"
	"github.com/storehouse-ng/storefront-chat/internal/metrics"
	"github.com/storehouse-ng/storefront-chat/internal/models"
	"github.com/storehouse-ng/storefront-chat/internal/responder"
)

type fakeStores struct {
	stores map[string]*catalog.StoreContext
	err    error
}

func (f *fakeStores) Load(_ context.Context, slug string) (*catalog.StoreContext, error) {
	if f.err != nil {
		return nil, f.err
	}
	sc, ok := f.stores[slug]
	if !ok {
		return nil, catalog.ErrStoreNotFound
	}
	return sc, nil
}

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	text  string
	block bool
}

func (f *fakeProvider) Complete(ctx context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &llm.CompletionResponse{Text: f.text}, nil
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingAlerts struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func (r *recordingAlerts) Notify(_ context.Context, a alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.ChatEvent
}

func (r *recordingEvents) RecordEvent(_ context.Context, ev models.ChatEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// brokenStore fails every operation.
type brokenStore struct{}

var errBroken = errors.New("disk I/O error")

func (brokenStore) Get(context.Context, string) (convstate.State, bool, error) {
	return convstate.State{}, false, errBroken
}
func (brokenStore) Update(context.Context, string, convstate.UpdateFunc) (convstate.State, error) {
	return convstate.State{}, errBroken
}
func (brokenStore) Delete(context.Context, string) error { return errBroken }
func (brokenStore) Sweep(context.Context) (int, error)   { return 0, errBroken }
func (brokenStore) Ping(context.Context) error           { return errBroken }

type harness struct {
	pipeline *Pipeline
	provider *fakeProvider
	stores   *fakeStores
	limiter  *convstate.Limiter
	alerts   *recordingAlerts
	events   *recordingEvents
	metrics  *metrics.Metrics
}

type harnessOpts struct {
	cfg      Config
	state    convstate.Store
	noLLM    bool
	llmDelay time.Duration
}

func acmeStore() *catalog.StoreContext {
	return &catalog.StoreContext{
		Slug: "acme",
		Profile: catalog.Profile{
			BusinessName: "Acme",
			WhatsApp:     "+2348012345678",
		},
		Policies: catalog.Policies{Delivery: catalog.Delivery{Areas: "Lagos", Time: "2-3 days"}},
		Products: []catalog.Product{
			{ID: "1", Name: "Infinix Smart 7", Price: 5500000, Quantity: 2, Category: "phones"},
			{ID: "2", Name: "Leather Bag", Price: 150000, Quantity: 3, Category: "fashion"},
		},
	}
}

func newHarness(t *testing.T, o harnessOpts) *harness {
	t.Helper()
	if o.cfg == (Config{}) {
		o.cfg = Config{MaxMessagesPerSession: 50, MaxMessagesPerMinute: 50}
	}
	if o.state == nil {
		o.state = convstate.NewMemoryStore(convstate.MemoryConfig{Capacity: 100, TTL: time.Hour})
	}
	timeout := o.llmDelay
	if timeout <= 0 {
		timeout = time.Second
	}

	h := &harness{
		provider: &fakeProvider{text: "The Infinix Smart 7 is ₦55,000. WhatsApp +2348012345678 to order."},
		stores:   &fakeStores{stores: map[string]*catalog.StoreContext{"acme": acmeStore()}},
		alerts:   &recordingAlerts{},
		events:   &recordingEvents{},
		metrics:  metrics.New(),
	}
	h.limiter = convstate.NewLimiter(o.state, convstate.LimiterConfig{OffTopicThreshold: 3, BlockTTL: 30 * time.Minute}, zerolog.Nop())

	var provider llm.Provider = h.provider
	if o.noLLM {
		provider = nil
	}
	gen := responder.New(provider, language.Default(), responder.Config{Timeout: timeout}, zerolog.Nop())

	h.pipeline = New(o.cfg, Deps{
		Limiter:   h.limiter,
		Stores:    h.stores,
		Responder: gen,
		Metrics:   h.metrics,
		Alerts:    h.alerts,
		Events:    h.events,
	}, zerolog.Nop())
	return h
}

func (h *harness) chat(msg string) Result {
	return h.pipeline.HandleChat(context.Background(), Request{Message: msg, StoreSlug: "acme", SessionID: "s-1"})
}

func TestHandleChat_Greeting(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	res := h.chat("hi")
	assert.Contains(t, res.Response, "Acme")
	assert.GreaterOrEqual(t, res.Confidence, 0.9)
	assert.Equal(t, "faq", res.Source)
	assert.False(t, res.Blocked)
	assert.Equal(t, "s-1", res.SessionID)
	assert.Equal(t, "english", res.Language)
	assert.Zero(t, h.provider.callCount())
}

func TestHandleChat_Spam(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	res := h.chat("aaaaaaaaaaaaaaaaaaaa call 08012345678 08012345678 08012345678")
	assert.True(t, res.Blocked)
	assert.Equal(t, ReasonSpam, res.Reason)
	assert.Equal(t, "guardrail", res.Source)
	assert.Zero(t, h.provider.callCount())

	_, exists, err := h.limiter.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.False(t, exists, "spam never touches the session state")

	require.Len(t, h.events.events, 1)
	assert.Equal(t, models.OutcomeBlocked, h.events.events[0].Outcome)
	assert.Equal(t, "repeated_chars", h.events.events[0].Category)
}

func TestHandleChat_UnknownStore(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	res := h.pipeline.HandleChat(context.Background(), Request{Message: "hi", StoreSlug: "nope", SessionID: "s-1"})
	assert.True(t, res.StoreNotFound)
	assert.Equal(t, StoreNotFoundResponse, res.Response)
	assert.Equal(t, ReasonStoreNotFound, res.Reason)
	assert.Empty(t, res.Source)
	assert.Empty(t, res.Language)
	assert.Zero(t, res.Confidence)
	assert.False(t, res.Blocked)
	assert.Zero(t, h.provider.callCount())
}

func TestHandleChat_ProviderTimeout(t *testing.T) {
	h := newHarness(t, harnessOpts{llmDelay: 30 * time.Millisecond})
	h.provider.block = true

	res := h.chat("Do you have any phones available?")
	assert.Equal(t, language.Default().Fallback(language.English, "+2348012345678"), res.Response)
	assert.Contains(t, res.Response, "+2348012345678")
	assert.Equal(t, "fallback", res.Source)
	assert.Equal(t, 1, h.provider.callCount(), "no retry")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.UpstreamErrorsTotal.WithLabelValues("llm", "timeout")))
}

func TestHandleChat_NoProvider(t *testing.T) {
	h := newHarness(t, harnessOpts{noLLM: true})

	res := h.chat("Do you have any phones available?")
	assert.Equal(t, "fallback", res.Source)
	assert.Zero(t, testutil.ToFloat64(h.metrics.UpstreamErrorsTotal.WithLabelValues("llm", "other")))
}

func TestHandleChat_GeneratedAnswer(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	res := h.chat("how much is the infinix smart 7?")
	assert.Equal(t, "ai", res.Source)
	assert.Equal(t, responder.ConfidenceAI, res.Confidence)
	assert.Empty(t, res.ValidationWarning)
	assert.Contains(t, res.Response, "₦55,000")
}

func TestHandleChat_ValidationFailure(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.provider.text = "The Infinix Smart 7 is ₦20,000."

	res := h.chat("how much is the infinix smart 7?")
	assert.Equal(t, "ai_validated", res.Source)
	assert.Equal(t, 0.6, res.Confidence)
	assert.Contains(t, res.ValidationWarning, "price_mismatch")
	assert.Contains(t, res.Response, "₦55,000")
	assert.NotContains(t, res.Response, "₦20,000")

	require.Len(t, h.alerts.alerts, 1)
	assert.Equal(t, "validate", h.alerts.alerts[0].Source)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ValidationFailures.WithLabelValues("price_mismatch")))
}

func TestHandleChat_OffTopicBlocksSession(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	for i := 0; i < 2; i++ {
		res := h.chat("who won the arsenal match")
		assert.False(t, res.Blocked, "strike %d", i+1)
		assert.Equal(t, ReasonOffTopic, res.Reason)
		assert.Equal(t, "sports", res.OffTopicCategory)
		assert.Contains(t, res.Response, "Acme")
	}
	assert.Empty(t, h.alerts.alerts)

	res := h.chat("who won the arsenal match")
	assert.True(t, res.Blocked)
	assert.Equal(t, ReasonOffTopic, res.Reason)
	require.Len(t, h.alerts.alerts, 1)
	assert.Equal(t, "Chat session blocked", h.alerts.alerts[0].Title)

	// Blocked sessions stay blocked whatever they send.
	res = h.chat("hi")
	assert.True(t, res.Blocked)
	assert.Equal(t, convstate.ReasonBlocked, res.Reason)
	assert.Contains(t, res.Response, "Acme")
	assert.Positive(t, res.WaitSeconds)
	assert.Zero(t, h.provider.callCount())
	assert.Len(t, h.alerts.alerts, 1, "one alert per block")
}

func TestHandleChat_RateLimit(t *testing.T) {
	h := newHarness(t, harnessOpts{cfg: Config{MaxMessagesPerSession: 50, MaxMessagesPerMinute: 2}})

	assert.False(t, h.chat("hi").Blocked)
	assert.False(t, h.chat("hello").Blocked)

	res := h.chat("hey")
	assert.True(t, res.Blocked)
	assert.Equal(t, convstate.ReasonTooFast, res.Reason)
	assert.Positive(t, res.WaitSeconds)
	assert.Equal(t, "guardrail", res.Source)
}

func TestHandleChat_SessionLimitNamesStore(t *testing.T) {
	h := newHarness(t, harnessOpts{cfg: Config{MaxMessagesPerSession: 1, MaxMessagesPerMinute: 50}})

	h.chat("hi")
	res := h.chat("hi")
	assert.True(t, res.Blocked)
	assert.Equal(t, convstate.ReasonSessionLimit, res.Reason)
	assert.Contains(t, res.Response, "+2348012345678")
}

func TestHandleChat_CatalogUnavailable(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.stores.err = errors.New("connection refused")

	res := h.chat("Do you have any phones available?")
	assert.Equal(t, ReasonStoreUnavailable, res.Reason)
	assert.Equal(t, "fallback", res.Source)
	assert.Equal(t, language.Default().Fallback(language.English, ""), res.Response)
	assert.NotContains(t, res.Response, "WhatsApp")
	assert.False(t, res.StoreNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.UpstreamErrorsTotal.WithLabelValues("catalog", "other")))
}

func TestHandleChat_StateStoreFailsOpen(t *testing.T) {
	h := newHarness(t, harnessOpts{state: brokenStore{}})

	res := h.chat("how much is the infinix smart 7?")
	assert.False(t, res.Blocked)
	assert.Equal(t, "ai", res.Source)

	res = h.chat("who won the arsenal match")
	assert.False(t, res.Blocked)
	assert.Equal(t, ReasonOffTopic, res.Reason)

	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.StateErrorsTotal.WithLabelValues("rate_limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.StateErrorsTotal.WithLabelValues("track_off_topic")))
}

func TestHandleChat_RecordsEvents(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	h.chat("hi")
	h.chat("how much is the infinix smart 7?")

	require.Len(t, h.events.events, 2)
	first := h.events.events[0]
	assert.Equal(t, models.OutcomeAnswered, first.Outcome)
	assert.Equal(t, "faq", first.Source)
	assert.Equal(t, "acme", first.StoreSlug)
	assert.Equal(t, 2, first.MessageLength)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, h.events.events[1].ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ChatRequestsTotal.WithLabelValues("answered", "faq")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ChatRequestsTotal.WithLabelValues("answered", "ai")))
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "canceled", errorType(context.Canceled))
	assert.Equal(t, "timeout", errorType(context.DeadlineExceeded))
	assert.Equal(t, "other", errorType(errors.New("x")))
}
