// Package health reports liveness and readiness of the chat service and its backends.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status represents the health status of a dependency.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// CheckFunc checks one dependency.
type CheckFunc func(ctx context.Context) Status

// PingFunc is the shape of the backends' Ping methods.
type PingFunc func(ctx context.Context) error

// Required reports down when ping fails. Use it for backends the service cannot answer without.
func Required(ping PingFunc) CheckFunc {
	return func(ctx context.Context) Status {
		if err := ping(ctx); err != nil {
			return StatusDown
		}
		return StatusOK
	}
}

// Optional reports degraded when ping fails. The chat pipeline fails open on these.
func Optional(ping PingFunc) CheckFunc {
	return func(ctx context.Context) Status {
		if err := ping(ctx); err != nil {
			return StatusDegraded
		}
		return StatusOK
	}
}

// Fixed always reports s, e.g. degraded when no language model is configured.
func Fixed(s Status) CheckFunc {
	return func(context.Context) Status { return s }
}

// Checker manages health checks for all dependencies.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	last    map[string]Status
	timeout time.Duration
	logger  zerolog.Logger
}

// NewChecker creates a new health checker. Each check gets timeout; zero means 3s.
func NewChecker(timeout time.Duration, logger zerolog.Logger) *Checker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Checker{
		checks:  make(map[string]CheckFunc),
		last:    make(map[string]Status),
		timeout: timeout,
		logger:  logger.With().Str("component", "health").Logger(),
	}
}

// Register adds a named health check.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// Names lists the registered checks in order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for n := range c.checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RunAll executes all checks concurrently. Status changes since the previous run are logged.
func (c *Checker) RunAll(ctx context.Context) map[string]Status {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	c.mu.RUnlock()

	results := make(map[string]Status, len(checks))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, fn := range checks {
		wg.Add(1)
		go func(n string, f CheckFunc) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			s := f(checkCtx)
			mu.Lock()
			results[n] = s
			mu.Unlock()
		}(name, fn)
	}
	wg.Wait()

	c.mu.Lock()
	for n, s := range results {
		if prev, ok := c.last[n]; ok && prev != s {
			c.logger.Warn().Str("check", n).Str("from", string(prev)).Str("to", string(s)).Msg("health changed")
		}
	}
	c.last = results
	c.mu.Unlock()

	return results
}

// Overall folds check results into one status.
func Overall(results map[string]Status) Status {
	overall := StatusOK
	for _, s := range results {
		switch s {
		case StatusDown:
			return StatusDown
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// IsReady reports whether no check is down.
func (c *Checker) IsReady(ctx context.Context) bool {
	return Overall(c.RunAll(ctx)) != StatusDown
}

// LivenessHandler serves /healthz.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// ReadinessHandler serves /readyz: 200 while nothing is down, 503 otherwise.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		results := c.RunAll(r.Context())
		overall := Overall(results)

		resp := map[string]interface{}{
			"checks":  results,
			"overall": overall,
		}
		if overall == StatusDown {
			resp["status"] = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			resp["status"] = "ready"
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
