package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	if err := s.migrateV1(); err != nil {
		return err
	}
	return s.migrateV2()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversation_states (
		session_id        TEXT PRIMARY KEY,
		message_count     INTEGER NOT NULL DEFAULT 0,
		last_message_at   INTEGER NOT NULL DEFAULT 0,
		recent_messages   TEXT NOT NULL DEFAULT '[]',
		off_topic_count   INTEGER NOT NULL DEFAULT 0,
		warning_count     INTEGER NOT NULL DEFAULT 0,
		is_blocked        INTEGER NOT NULL DEFAULT 0,
		blocked_at        INTEGER,
		created_at        INTEGER NOT NULL,
		expires_at        INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_states_expires ON conversation_states(expires_at);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}
	return nil
}

func (s *Store) migrateV2() error {
	var version string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	if err != nil || version >= "2" {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS chat_events (
		id                  TEXT PRIMARY KEY,
		request_id          TEXT,
		session_id          TEXT NOT NULL,
		store_slug          TEXT NOT NULL,
		outcome             TEXT NOT NULL,
		reason              TEXT,
		source              TEXT,
		language            TEXT,
		category            TEXT,
		validation_warning  TEXT,
		confidence          REAL NOT NULL DEFAULT 0,
		message_length      INTEGER NOT NULL DEFAULT 0,
		latency_ms          INTEGER NOT NULL DEFAULT 0,
		created_at          INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_created ON chat_events(created_at);
	CREATE INDEX IF NOT EXISTS idx_events_store ON chat_events(store_slug, created_at);
	CREATE INDEX IF NOT EXISTS idx_events_session ON chat_events(session_id, created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v2: %w", err)
	}

	if _, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '2')`); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return nil
}
