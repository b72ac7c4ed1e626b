package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	cerrors "github.com/storehouse-ng/storefront-chat/internal/errors"
	"github.com/storehouse-ng/storefront-chat/internal/retry"
)

// Loader bounds a Provider with a per-attempt timeout and a small retry budget.
type Loader struct {
	provider Provider
	timeout  time.Duration
	retry    retry.Config
	logger   zerolog.Logger
}

// NewLoader wraps provider. attempts counts the first call; values below 1 mean a single attempt.
func NewLoader(provider Provider, timeout time.Duration, attempts int, logger zerolog.Logger) *Loader {
	l := &Loader{
		provider: provider,
		timeout:  timeout,
		retry:    retry.DefaultConfig(),
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
	l.retry.MaxAttempts = attempts
	l.retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		l.logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("retrying store context load")
	}
	return l
}

// Load fetches the store context for slug. ErrStoreNotFound is returned unchanged and never retried.
func (l *Loader) Load(ctx context.Context, slug string) (*StoreContext, error) {
	var sc *StoreContext
	err := retry.Do(ctx, l.retry, func(ctx context.Context) error {
		attemptCtx := ctx
		if l.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, l.timeout)
			defer cancel()
		}

		var err error
		sc, err = l.provider.Load(attemptCtx, slug)
		if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, cerrors.ErrTimeout) {
			err = fmt.Errorf("%w: %v", cerrors.ErrTimeout, err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// Ping forwards to the provider when it supports health checks.
func (l *Loader) Ping(ctx context.Context) error {
	if p, ok := l.provider.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
