// Package metrics provides Prometheus metrics for the storefront chat service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storehouse-ng/storefront-chat/lru"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	ChatRequestsTotal    *prometheus.CounterVec
	ChatDuration         *prometheus.HistogramVec
	GuardrailBlocksTotal *prometheus.CounterVec
	LanguagesTotal       *prometheus.CounterVec
	UpstreamErrorsTotal  *prometheus.CounterVec
	ValidationFailures   *prometheus.CounterVec
	StateErrorsTotal     *prometheus.CounterVec
	SessionsBlockedTotal prometheus.Counter
	HTTPRequestsTotal    *prometheus.CounterVec
	StatesSweptTotal     prometheus.Counter

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ChatRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_requests_total",
				Help: "Chat messages handled, by outcome and reply source.",
			},
			[]string{"outcome", "source"},
		),
		ChatDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chat_request_duration_seconds",
				Help:    "Time to answer a chat message, by outcome.",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 20},
			},
			[]string{"outcome"},
		),
		GuardrailBlocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_guardrail_blocks_total",
				Help: "Messages stopped by a guardrail, by stage and reason.",
			},
			[]string{"stage", "reason"},
		),
		LanguagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_language_detected_total",
				Help: "Detected message language.",
			},
			[]string{"language"},
		),
		UpstreamErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_upstream_errors_total",
				Help: "Failed calls to the catalog or the language model, by service and type.",
			},
			[]string{"service", "type"},
		),
		ValidationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_validation_failures_total",
				Help: "Generated replies replaced after validation, by category.",
			},
			[]string{"category"},
		),
		StateErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_state_errors_total",
				Help: "Conversation state store failures that were skipped (fail open), by operation.",
			},
			[]string{"op"},
		),
		SessionsBlockedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_sessions_blocked_total",
				Help: "Sessions blocked after repeated off-topic messages.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_http_requests_total",
				Help: "HTTP requests by method, route and status code.",
			},
			[]string{"method", "route", "status"},
		),
		StatesSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_states_swept_total",
				Help: "Expired conversation states removed by the sweeper.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.ChatRequestsTotal)
	reg.MustRegister(m.ChatDuration)
	reg.MustRegister(m.GuardrailBlocksTotal)
	reg.MustRegister(m.LanguagesTotal)
	reg.MustRegister(m.UpstreamErrorsTotal)
	reg.MustRegister(m.ValidationFailures)
	reg.MustRegister(m.StateErrorsTotal)
	reg.MustRegister(m.SessionsBlockedTotal)
	reg.MustRegister(m.HTTPRequestsTotal)
	reg.MustRegister(m.StatesSweptTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry, e.g. for tests or extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordChat counts one handled message and its latency.
func (m *Metrics) RecordChat(outcome, source string, seconds float64) {
	m.ChatRequestsTotal.WithLabelValues(outcome, source).Inc()
	m.ChatDuration.WithLabelValues(outcome).Observe(seconds)
}

// RecordBlock counts a guardrail rejection. stage is spam, rate_limit or off_topic.
func (m *Metrics) RecordBlock(stage, reason string) {
	m.GuardrailBlocksTotal.WithLabelValues(stage, reason).Inc()
}

// RecordLanguage counts a detected language.
func (m *Metrics) RecordLanguage(lang string) {
	m.LanguagesTotal.WithLabelValues(lang).Inc()
}

// RecordUpstreamError counts a failed catalog or model call.
func (m *Metrics) RecordUpstreamError(service, errType string) {
	m.UpstreamErrorsTotal.WithLabelValues(service, errType).Inc()
}

// RecordValidationFailure counts a replaced reply.
func (m *Metrics) RecordValidationFailure(category string) {
	m.ValidationFailures.WithLabelValues(category).Inc()
}

// RecordStateError counts a skipped state store failure.
func (m *Metrics) RecordStateError(op string) {
	m.StateErrorsTotal.WithLabelValues(op).Inc()
}

// RecordSessionBlocked counts a session transitioning to blocked.
func (m *Metrics) RecordSessionBlocked() {
	m.SessionsBlockedTotal.Inc()
}

// RecordHTTP counts a served HTTP request.
func (m *Metrics) RecordHTTP(method, route, status string) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
}

// AddSwept adds to the swept-states counter.
func (m *Metrics) AddSwept(n int) {
	if n > 0 {
		m.StatesSweptTotal.Add(float64(n))
	}
}

// ObserveStateCache exports the in-memory state cache counters. stats is read on every scrape.
func (m *Metrics) ObserveStateCache(stats func() lru.Metrics) {
	counter := func(name, help string, field func(lru.Metrics) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: name, Help: help},
			func() float64 { return float64(field(stats())) },
		)
	}
	m.registry.MustRegister(
		counter("chat_state_cache_hits_total", "State lookups that found a live session.",
			func(s lru.Metrics) uint64 { return s.Hits }),
		counter("chat_state_cache_misses_total", "State lookups for unknown or expired sessions.",
			func(s lru.Metrics) uint64 { return s.Misses }),
		counter("chat_state_cache_evictions_total", "Sessions dropped to stay within CHAT_STATE_CAPACITY.",
			func(s lru.Metrics) uint64 { return s.Evictions }),
		counter("chat_state_cache_expirations_total", "Sessions dropped after CHAT_STATE_TTL of inactivity.",
			func(s lru.Metrics) uint64 { return s.Expirations }),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: "chat_state_cache_hit_ratio", Help: "Share of state lookups that hit."},
			func() float64 { return stats().HitRate() },
		),
	)
}
