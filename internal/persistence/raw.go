// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package persistence

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/BiopticBug/pulsewire/internal/events"
	"github.com/BiopticBug/pulsewire/internal/logging"
)

const insertRawEventSQL = `
	INSERT INTO raw_events (event_id, ts, user_id, session_id, route, action, metadata, source)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (event_id) DO NOTHING
`

// InsertRawBatch inserts every event in batch, tolerating duplicate
// eventIds (I5: at most one raw_events row per eventId) and per-row errors:
// one bad row is logged and skipped rather than failing the whole batch,
// since the caller (the async durability consumer) has no ingestion
// response left to fail.
func (s *Store) InsertRawBatch(ctx context.Context, batch []events.Event, source string) (inserted int, err error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("persistence: begin raw insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertRawEventSQL)
	if err != nil {
		return 0, fmt.Errorf("persistence: prepare raw insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, ev := range batch {
		metadata, merr := json.Marshal(ev.Metadata)
		if merr != nil {
			logging.Debug().Err(merr).Str("event_id", ev.EventID).Msg("dropping event with unmarshalable metadata")
			continue
		}

		res, execErr := stmt.ExecContext(ctx, ev.EventID, ev.TS, ev.UserID, ev.SessionID, ev.Route, ev.Action, string(metadata), source)
		if execErr != nil {
			logging.Debug().Err(execErr).Str("event_id", ev.EventID).Msg("raw event insert failed, continuing batch")
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("persistence: commit raw insert tx: %w", err)
	}
	return inserted, nil
}
