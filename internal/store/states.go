package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/storehouse-ng/storefront-chat/internal/convstate"
)

var _ convstate.Store = (*Store)(nil)

const stateColumns = `session_id, message_count, last_message_at, recent_messages,
	off_topic_count, warning_count, is_blocked, blocked_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Get returns the live conversation state for sessionID.
func (s *Store) Get(ctx context.Context, sessionID string) (convstate.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM conversation_states WHERE session_id = ? AND expires_at > ?`,
		sessionID, s.cfg.Now().UnixMilli())

	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return convstate.State{}, false, nil
	}
	if err != nil {
		return convstate.State{}, false, fmt.Errorf("failed to get conversation state: %w", err)
	}
	return st, true, nil
}

// Update runs fn inside an immediate transaction so that concurrent writers, in this process
// or another sharing the database file, see a consistent state.
func (s *Store) Update(ctx context.Context, sessionID string, fn convstate.UpdateFunc) (convstate.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return convstate.State{}, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return convstate.State{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	now := s.cfg.Now()
	row := conn.QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM conversation_states WHERE session_id = ? AND expires_at > ?`,
		sessionID, now.UnixMilli())

	st, err := scanState(row)
	exists := true
	switch {
	case errors.Is(err, sql.ErrNoRows):
		st, exists = convstate.State{}, false
	case err != nil:
		return convstate.State{}, fmt.Errorf("failed to read conversation state: %w", err)
	}

	if !fn(&st, exists) {
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return convstate.State{}, fmt.Errorf("failed to commit: %w", err)
		}
		committed = true
		return st, nil
	}

	window, err := encodeWindow(st.Window)
	if err != nil {
		return convstate.State{}, err
	}

	_, err = conn.ExecContext(ctx, `
	INSERT OR REPLACE INTO conversation_states (
		session_id, message_count, last_message_at, recent_messages,
		off_topic_count, warning_count, is_blocked, blocked_at, created_at, expires_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sessionID, st.MessageCount, unixMilli(st.LastMessageTime), window,
		st.OffTopicCount, st.WarningCount, st.IsBlocked, nullMilli(st.BlockedAt),
		unixMilli(st.CreatedAt), now.Add(s.cfg.StateTTL).UnixMilli(),
	)
	if err != nil {
		return convstate.State{}, fmt.Errorf("failed to save conversation state: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return convstate.State{}, fmt.Errorf("failed to commit: %w", err)
	}
	committed = true
	return st, nil
}

// Delete removes a conversation state.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_states WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete conversation state: %w", err)
	}
	return nil
}

// Sweep deletes expired conversation states.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_states WHERE expires_at <= ?`, s.cfg.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep conversation states: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanState(row rowScanner) (convstate.State, error) {
	var (
		st                 convstate.State
		lastMsg, createdAt int64
		window             string
		blockedAt          sql.NullInt64
	)
	err := row.Scan(&st.SessionID, &st.MessageCount, &lastMsg, &window,
		&st.OffTopicCount, &st.WarningCount, &st.IsBlocked, &blockedAt, &createdAt)
	if err != nil {
		return convstate.State{}, err
	}

	st.LastMessageTime = fromMilli(lastMsg)
	st.CreatedAt = fromMilli(createdAt)
	if blockedAt.Valid {
		st.BlockedAt = fromMilli(blockedAt.Int64)
	}
	if st.Window, err = decodeWindow(window); err != nil {
		return convstate.State{}, err
	}
	return st, nil
}

func encodeWindow(window []time.Time) (string, error) {
	ms := make([]int64, len(window))
	for i, t := range window {
		ms[i] = t.UnixMilli()
	}
	b, err := json.Marshal(ms)
	if err != nil {
		return "", fmt.Errorf("failed to encode message window: %w", err)
	}
	return string(b), nil
}

func decodeWindow(raw string) ([]time.Time, error) {
	var ms []int64
	if err := json.Unmarshal([]byte(raw), &ms); err != nil {
		return nil, fmt.Errorf("failed to decode message window: %w", err)
	}
	if len(ms) == 0 {
		return nil, nil
	}
	window := make([]time.Time, len(ms))
	for i, v := range ms {
		window[i] = fromMilli(v)
	}
	return window, nil
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func nullMilli(t time.Time) sql.NullInt64 {
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: !t.IsZero()}
}

func fromMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
