// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CountRawEvents returns the number of rows currently in raw_events.
func (s *Store) CountRawEvents(ctx context.Context) (int64, error) {
	var n int64
	row := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM raw_events")
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("persistence: count raw events: %w", err)
	}
	return n, nil
}

// AggregateCheckpoint is the persisted (count, errors) pair for one
// (windowSec, bucketStart) cell.
type AggregateCheckpoint struct {
	Count  int64
	Errors int64
}

// GetAggregate reads the persisted checkpoint for (windowSec, bucketStart).
// The zero value is returned, with ok=false, if no row exists yet.
func (s *Store) GetAggregate(ctx context.Context, windowSec int, bucketStart int64) (cp AggregateCheckpoint, ok bool, err error) {
	row := s.conn.QueryRowContext(ctx, "SELECT count, errors FROM aggregates WHERE window_sec = ? AND bucket_start = ?", windowSec, bucketStart)
	switch scanErr := row.Scan(&cp.Count, &cp.Errors); {
	case errors.Is(scanErr, sql.ErrNoRows):
		return AggregateCheckpoint{}, false, nil
	case scanErr != nil:
		return AggregateCheckpoint{}, false, fmt.Errorf("persistence: get aggregate window=%d bucket=%d: %w", windowSec, bucketStart, scanErr)
	}
	return cp, true, nil
}
