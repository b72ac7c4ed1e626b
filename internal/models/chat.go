package models

import "time"

// Outcome summarises how a chat request was answered.
type Outcome string

const (
	OutcomeAnswered      Outcome = "answered"
	OutcomeBlocked       Outcome = "blocked"
	OutcomeRateLimited   Outcome = "rate_limited"
	OutcomeOffTopic      Outcome = "off_topic"
	OutcomeFallback      Outcome = "fallback"
	OutcomeStoreNotFound Outcome = "store_not_found"
)

// ChatEvent is one row of the chat event log. It never carries the message text.
type ChatEvent struct {
	ID                string    `json:"id"`
	RequestID         string    `json:"request_id,omitempty"`
	SessionID         string    `json:"session_id"`
	StoreSlug         string    `json:"store_slug"`
	Outcome           Outcome   `json:"outcome"`
	Reason            string    `json:"reason,omitempty"`
	Source            string    `json:"source,omitempty"`
	Language          string    `json:"language,omitempty"`
	Category          string    `json:"category,omitempty"`
	ValidationWarning string    `json:"validation_warning,omitempty"`
	Confidence        float64   `json:"confidence"`
	MessageLength     int       `json:"message_length"`
	LatencyMs         int64     `json:"latency_ms"`
	CreatedAt         time.Time `json:"created_at"`
}

// EventFilter narrows a chat event listing. Zero fields match everything.
type EventFilter struct {
	StoreSlug string
	SessionID string
	Limit     int
}
