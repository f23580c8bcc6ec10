// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package persistence

import (
	"context"
	"fmt"
)

// schemaStatements creates the raw_events and aggregates tables and their
// indexes. All statements use IF NOT EXISTS so schema setup is idempotent
// across restarts and tolerates concurrent create races.
//
// DuckDB has no native TTL index: raw_events.received_at is purged
// periodically by ttl.go instead of expiring via an index (see DESIGN.md).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS raw_events (
		event_id TEXT PRIMARY KEY,
		ts BIGINT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL,
		route TEXT NOT NULL,
		action TEXT NOT NULL,
		metadata JSON,
		source TEXT NOT NULL DEFAULT 'http',
		received_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_events_session_id ON raw_events(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_events_user_id ON raw_events(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_events_route ON raw_events(route)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_events_received_at ON raw_events(received_at)`,
	`CREATE TABLE IF NOT EXISTS aggregates (
		window_sec INTEGER NOT NULL,
		bucket_start BIGINT NOT NULL,
		count BIGINT NOT NULL DEFAULT 0,
		errors BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (window_sec, bucket_start)
	)`,
}

// EnsureSchema creates every table/index the store needs if it does not
// already exist. Safe to call on every startup and concurrently with other
// processes racing to create the same schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("persistence: schema statement failed (%.40s...): %w", stmt, err)
		}
	}
	return nil
}
