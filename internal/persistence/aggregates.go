// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package persistence

import (
	"context"
	"fmt"
	"time"
)

const upsertAggregateSQL = `
	INSERT INTO aggregates (window_sec, bucket_start, count, errors, created_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (window_sec, bucket_start) DO UPDATE SET
		count = aggregates.count + excluded.count,
		errors = aggregates.errors + excluded.errors
`

// UpsertAggregate increments the persisted checkpoint for (windowSec,
// bucketStart) by deltaCount/deltaErrors, initializing createdAt from the
// bucket start on first insert. This is the coarser, durable counterpart to
// the in-memory aggregator's per-route breakdown.
func (s *Store) UpsertAggregate(ctx context.Context, windowSec int, bucketStart int64, deltaCount, deltaErrors int) error {
	createdAt := time.UnixMilli(bucketStart).UTC()
	if _, err := s.conn.ExecContext(ctx, upsertAggregateSQL, windowSec, bucketStart, deltaCount, deltaErrors, createdAt); err != nil {
		return fmt.Errorf("persistence: upsert aggregate window=%d bucket=%d: %w", windowSec, bucketStart, err)
	}
	return nil
}
