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

const purgeExpiredSQL = `DELETE FROM raw_events WHERE received_at < ?`

// PurgeExpired deletes every raw_events row older than ttl. DuckDB has no
// native TTL mechanism, so the bucket janitor calls this on the same ticker
// that evicts in-memory buckets.
func (s *Store) PurgeExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl).UTC()
	res, err := s.conn.ExecContext(ctx, purgeExpiredSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("persistence: purge expired raw events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
