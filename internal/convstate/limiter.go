package convstate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Rejection reasons carried by a Decision.
const (
	ReasonTooFast      = "too_fast"
	ReasonSessionLimit = "session_limit"
	ReasonBlocked      = "blocked"
)

// permanentBlockWait is reported to a blocked session whose block never lifts.
const permanentBlockWait = 300

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason,omitempty"`
	WaitSeconds int    `json:"wait_seconds,omitempty"`
}

// LimiterConfig configures a Limiter.
type LimiterConfig struct {
	OffTopicThreshold int           // strikes before a session is blocked, default 3
	BlockTTL          time.Duration // 0 keeps the block for the lifetime of the state
	Now               func() time.Time
}

// Limiter applies the per-session message limits and off-topic strike policy.
type Limiter struct {
	store  Store
	cfg    LimiterConfig
	logger zerolog.Logger
}

// NewLimiter creates a Limiter over store.
func NewLimiter(store Store, cfg LimiterConfig, logger zerolog.Logger) *Limiter {
	if cfg.OffTopicThreshold <= 0 {
		cfg.OffTopicThreshold = 3
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Limiter{
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("component", "convstate").Logger(),
	}
}

// CheckRateLimit decides whether the session may send another message and, if so, records it.
// maxMessages caps the session; maxPerMinute caps accepted messages in any trailing minute.
// Rejected messages leave the state untouched.
func (l *Limiter) CheckRateLimit(ctx context.Context, sessionID string, maxMessages, maxPerMinute int) (Decision, error) {
	now := l.cfg.Now()
	var d Decision

	_, err := l.store.Update(ctx, sessionID, func(s *State, exists bool) bool {
		if !exists {
			*s = newState(sessionID, now)
			s.record(now)
			d = Decision{Allowed: true}
			return true
		}

		lifted := false
		if s.IsBlocked {
			if l.cfg.BlockTTL <= 0 {
				d = Decision{Reason: ReasonBlocked, WaitSeconds: permanentBlockWait}
				return false
			}
			if remaining := s.BlockedAt.Add(l.cfg.BlockTTL).Sub(now); remaining > 0 {
				d = Decision{Reason: ReasonBlocked, WaitSeconds: ceilSeconds(remaining)}
				return false
			}
			l.logger.Info().Str("session", sessionID).Msg("block expired, session reset")
			*s = newState(sessionID, now)
			lifted = true
		}

		s.pruneWindow(now)
		if maxPerMinute > 0 && len(s.Window) >= maxPerMinute {
			d = Decision{Reason: ReasonTooFast, WaitSeconds: ceilSeconds(s.Window[0].Add(Window).Sub(now))}
			return lifted
		}
		if maxMessages > 0 && s.MessageCount >= maxMessages {
			d = Decision{Reason: ReasonSessionLimit}
			return lifted
		}

		s.record(now)
		d = Decision{Allowed: true}
		return true
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", sessionID, err)
	}
	return d, nil
}

// TrackOffTopicAttempt records an off-topic strike and reports whether the session is now blocked.
// Once blocked, a session stays blocked until the block TTL lifts it or it is Reset.
func (l *Limiter) TrackOffTopicAttempt(ctx context.Context, sessionID string) (bool, error) {
	now := l.cfg.Now()

	s, err := l.store.Update(ctx, sessionID, func(s *State, exists bool) bool {
		if !exists {
			*s = newState(sessionID, now)
		}
		s.OffTopicCount++
		if s.IsBlocked {
			return true
		}
		if s.OffTopicCount >= l.cfg.OffTopicThreshold {
			s.IsBlocked = true
			s.BlockedAt = now
		} else {
			s.WarningCount++
		}
		return true
	})
	if err != nil {
		return false, fmt.Errorf("track off-topic %s: %w", sessionID, err)
	}

	if s.IsBlocked {
		l.logger.Warn().Str("session", sessionID).Int("strikes", s.OffTopicCount).Msg("session blocked")
	}
	return s.IsBlocked, nil
}

// Get returns the current state of a session.
func (l *Limiter) Get(ctx context.Context, sessionID string) (State, bool, error) {
	return l.store.Get(ctx, sessionID)
}

// Reset forgets everything about a session.
func (l *Limiter) Reset(ctx context.Context, sessionID string) error {
	if err := l.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("reset %s: %w", sessionID, err)
	}
	return nil
}

func ceilSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
