package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func okPing(context.Context) error   { return nil }
func failPing(context.Context) error { return errors.New("unreachable") }

func TestLivenessHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	LivenessHandler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestRequiredAndOptional(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, StatusOK, Required(okPing)(ctx))
	assert.Equal(t, StatusDown, Required(failPing)(ctx))
	assert.Equal(t, StatusOK, Optional(okPing)(ctx))
	assert.Equal(t, StatusDegraded, Optional(failPing)(ctx))
	assert.Equal(t, StatusDegraded, Fixed(StatusDegraded)(ctx))
}

func TestChecker_AllHealthy(t *testing.T) {
	c := NewChecker(0, zerolog.Nop())
	c.Register("catalog", Required(okPing))
	c.Register("state_store", Optional(okPing))

	assert.True(t, c.IsReady(context.Background()))
	assert.Equal(t, []string{"catalog", "state_store"}, c.Names())
}

func TestChecker_CatalogDown(t *testing.T) {
	c := NewChecker(0, zerolog.Nop())
	c.Register("catalog", Required(failPing))
	c.Register("state_store", Optional(okPing))

	assert.False(t, c.IsReady(context.Background()))
}

func TestChecker_StateStoreDegraded_StillReady(t *testing.T) {
	c := NewChecker(0, zerolog.Nop())
	c.Register("state_store", Optional(failPing))

	results := c.RunAll(context.Background())
	assert.Equal(t, StatusDegraded, Overall(results))
	assert.True(t, c.IsReady(context.Background()))
}

func TestChecker_NoChecks(t *testing.T) {
	c := NewChecker(0, zerolog.Nop())
	assert.True(t, c.IsReady(context.Background()))
}

func TestChecker_Timeout(t *testing.T) {
	c := NewChecker(20*time.Millisecond, zerolog.Nop())
	c.Register("slow", Required(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	start := time.Now()
	assert.False(t, c.IsReady(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestReadinessHandler_Healthy(t *testing.T) {
	c := NewChecker(0, zerolog.Nop())
	c.Register("llm", Fixed(StatusDegraded))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ready"`)
	assert.Contains(t, rr.Body.String(), `"overall":"degraded"`)
}

func TestReadinessHandler_NotReady(t *testing.T) {
	c := NewChecker(0, zerolog.Nop())
	c.Register("catalog", Required(failPing))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "not_ready")
}
