package store

import (
	"context"
	"fmt"
	"time"
)

// RunRetention purges expired conversation states and chat events older than the retention window.
func (s *Store) RunRetention(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Now()

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM conversation_states WHERE expires_at <= ?", now.UnixMilli()); err != nil {
		return fmt.Errorf("failed to delete expired conversation states: %w", err)
	}

	cutoff := now.Add(-s.cfg.EventRetention).UnixMilli()
	res, err := s.db.ExecContext(ctx, "DELETE FROM chat_events WHERE created_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete old chat events: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info().Int64("events", n).Msg("retention purged chat events")
	}
	return nil
}

// RunRetentionLoop calls RunRetention every interval until ctx is done.
func (s *Store) RunRetentionLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunRetention(ctx); err != nil {
				s.logger.Error().Err(err).Msg("retention run failed")
				continue
			}
			if size, err := s.DBSizeBytes(); err == nil {
				s.logger.Debug().Int64("db_size_bytes", size).Msg("retention run complete")
			}
		}
	}
}

// DBSizeBytes returns the database size in bytes
func (s *Store) DBSizeBytes() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pageCount, pageSize int64
	if err := s.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := s.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("failed to get page size: %w", err)
	}
	return pageCount * pageSize, nil
}
