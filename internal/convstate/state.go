// Package convstate tracks per-session conversation state for the storefront chat:
// message rate limiting, off-topic strikes and session blocking.
package convstate

import "time"

// Window is the span of the rolling per-minute rate limit.
const Window = time.Minute

// State is the conversation state of one chat session.
type State struct {
	SessionID       string      `json:"session_id"`
	MessageCount    int         `json:"message_count"`
	LastMessageTime time.Time   `json:"last_message_time"`
	Window          []time.Time `json:"window,omitempty"`
	OffTopicCount   int         `json:"off_topic_count"`
	WarningCount    int         `json:"warning_count"`
	IsBlocked       bool        `json:"is_blocked"`
	BlockedAt       time.Time   `json:"blocked_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

func newState(sessionID string, now time.Time) State {
	return State{SessionID: sessionID, CreatedAt: now}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := s
	if s.Window != nil {
		c.Window = append([]time.Time(nil), s.Window...)
	}
	return c
}

// pruneWindow drops timestamps that have left the rolling window.
func (s *State) pruneWindow(now time.Time) {
	i := 0
	for i < len(s.Window) && now.Sub(s.Window[i]) >= Window {
		i++
	}
	if i > 0 {
		s.Window = append(s.Window[:0], s.Window[i:]...)
	}
}

func (s *State) record(now time.Time) {
	s.MessageCount++
	s.LastMessageTime = now
	s.Window = append(s.Window, now)
}
