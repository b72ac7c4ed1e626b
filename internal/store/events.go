package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/storehouse-ng/storefront-chat/internal/models"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// RecordEvent appends one chat event. ID and CreatedAt are filled in when empty.
func (s *Store) RecordEvent(ctx context.Context, ev models.ChatEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.cfg.Now()
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO chat_events (
		id, request_id, session_id, store_slug, outcome, reason, source, language,
		category, validation_warning, confidence, message_length, latency_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID, nullString(ev.RequestID), ev.SessionID, ev.StoreSlug, string(ev.Outcome),
		nullString(ev.Reason), nullString(ev.Source), nullString(ev.Language),
		nullString(ev.Category), nullString(ev.ValidationWarning),
		ev.Confidence, ev.MessageLength, ev.LatencyMs, ev.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record chat event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent chat events matching f, newest first.
func (s *Store) ListEvents(ctx context.Context, f models.EventFilter) ([]models.ChatEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT id, request_id, session_id, store_slug, outcome, reason, source, language,
		category, validation_warning, confidence, message_length, latency_ms, created_at
	FROM chat_events`

	var (
		where []string
		args  []any
	)
	if f.StoreSlug != "" {
		where = append(where, "store_slug = ?")
		args = append(args, f.StoreSlug)
	}
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat events: %w", err)
	}
	defer rows.Close()

	var events []models.ChatEvent
	for rows.Next() {
		var (
			ev                                         models.ChatEvent
			outcome                                    string
			requestID, reason, source, lang, cat, warn sql.NullString
			createdAt                                  int64
		)
		if err := rows.Scan(&ev.ID, &requestID, &ev.SessionID, &ev.StoreSlug, &outcome,
			&reason, &source, &lang, &cat, &warn,
			&ev.Confidence, &ev.MessageLength, &ev.LatencyMs, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat event: %w", err)
		}
		ev.Outcome = models.Outcome(outcome)
		ev.RequestID = requestID.String
		ev.Reason = reason.String
		ev.Source = source.String
		ev.Language = lang.String
		ev.Category = cat.String
		ev.ValidationWarning = warn.String
		ev.CreatedAt = fromMilli(createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
