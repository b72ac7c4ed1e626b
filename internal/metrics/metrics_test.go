package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storehouse-ng/storefront-chat/lru"
)

func TestMetrics_New(t *testing.T) {
	m := New()
	assert.NotNil(t, m.ChatRequestsTotal)
	assert.NotNil(t, m.ChatDuration)
	assert.NotNil(t, m.GuardrailBlocksTotal)
	assert.NotNil(t, m.UpstreamErrorsTotal)
	assert.NotNil(t, m.Registry())
}

func TestMetrics_RecordChat(t *testing.T) {
	m := New()
	m.RecordChat("answered", "ai", 0.4)
	m.RecordChat("answered", "ai", 0.2)
	m.RecordChat("blocked", "guardrail", 0.001)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `chat_requests_total{outcome="answered",source="ai"} 2`)
	assert.Contains(t, body, `chat_requests_total{outcome="blocked",source="guardrail"} 1`)
	assert.Contains(t, body, `chat_request_duration_seconds_count{outcome="answered"} 2`)
}

func TestMetrics_Guardrails(t *testing.T) {
	m := New()
	m.RecordBlock("spam", "shouting")
	m.RecordBlock("off_topic", "sports")
	m.RecordSessionBlocked()
	m.RecordLanguage("pidgin")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `chat_guardrail_blocks_total{reason="shouting",stage="spam"} 1`)
	assert.Contains(t, body, `chat_guardrail_blocks_total{reason="sports",stage="off_topic"} 1`)
	assert.Contains(t, body, "chat_sessions_blocked_total 1")
	assert.Contains(t, body, `chat_language_detected_total{language="pidgin"} 1`)
}

func TestMetrics_Errors(t *testing.T) {
	m := New()
	m.RecordUpstreamError("llm", "timeout")
	m.RecordValidationFailure("price_mismatch")
	m.RecordStateError("update")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `chat_upstream_errors_total{service="llm",type="timeout"} 1`)
	assert.Contains(t, body, `chat_validation_failures_total{category="price_mismatch"} 1`)
	assert.Contains(t, body, `chat_state_errors_total{op="update"} 1`)
}

func TestMetrics_HTTPAndSweeps(t *testing.T) {
	m := New()
	m.RecordHTTP("POST", "/api/v1/chat", "200")
	m.AddSwept(3)
	m.AddSwept(0)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `chat_http_requests_total{method="POST",route="/api/v1/chat",status="200"} 1`)
	assert.Contains(t, body, "chat_states_swept_total 3")
}

func TestMetrics_ObserveStateCache(t *testing.T) {
	m := New()
	stats := lru.Metrics{Hits: 3, Misses: 1, Evictions: 2, Expirations: 5}
	m.ObserveStateCache(func() lru.Metrics { return stats })

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "chat_state_cache_hits_total 3")
	assert.Contains(t, body, "chat_state_cache_misses_total 1")
	assert.Contains(t, body, "chat_state_cache_evictions_total 2")
	assert.Contains(t, body, "chat_state_cache_expirations_total 5")
	assert.Contains(t, body, "chat_state_cache_hit_ratio 0.75")

	stats.Hits = 7
	assert.Contains(t, getMetricsBody(t, m), "chat_state_cache_hits_total 7")
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func getMetricsBody(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	return strings.TrimSpace(string(body))
}
