// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BiopticBug/pulsewire/internal/config"
	"github.com/BiopticBug/pulsewire/internal/events"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenEnsuresSchema(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestInsertRawBatchIsIdempotentPerEventID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := []events.Event{
		{EventID: "e1", TS: 1000, UserID: "u1", SessionID: "s1", Route: "/home", Action: "view", Metadata: map[string]interface{}{}},
		{EventID: "e2", TS: 1001, UserID: "u1", SessionID: "s1", Route: "/cart", Action: "error", Metadata: map[string]interface{}{"code": 500}},
	}

	inserted, err := s.InsertRawBatch(ctx, batch, "http")
	require.NoError(t, err)
	require.Equal(t, 2, inserted)

	// Re-inserting the same eventIds must not duplicate rows (I5).
	inserted, err = s.InsertRawBatch(ctx, batch, "http")
	require.NoError(t, err)
	require.Equal(t, 0, inserted)

	var count int
	require.NoError(t, s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM raw_events").Scan(&count))
	require.Equal(t, 2, count)
}

func TestInsertRawBatchEmpty(t *testing.T) {
	s := openTestStore(t)
	inserted, err := s.InsertRawBatch(context.Background(), nil, "http")
	require.NoError(t, err)
	require.Equal(t, 0, inserted)
}

func TestUpsertAggregateAccumulates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAggregate(ctx, 1, 60_000, 3, 1))
	require.NoError(t, s.UpsertAggregate(ctx, 1, 60_000, 2, 0))

	var count, errs int
	row := s.conn.QueryRowContext(ctx, "SELECT count, errors FROM aggregates WHERE window_sec = ? AND bucket_start = ?", 1, 60_000)
	require.NoError(t, row.Scan(&count, &errs))
	require.Equal(t, 5, count)
	require.Equal(t, 1, errs)
}

func TestPurgeExpiredRemovesOnlyStaleRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.InsertRawBatch(ctx, []events.Event{
		{EventID: "old", TS: 1, UserID: "u1", SessionID: "s1", Route: "/x", Action: "view", Metadata: map[string]interface{}{}},
	}, "http")
	require.NoError(t, err)

	_, err = s.conn.ExecContext(ctx, "UPDATE raw_events SET received_at = ? WHERE event_id = ?", time.Now().Add(-48*time.Hour), "old")
	require.NoError(t, err)

	_, err = s.InsertRawBatch(ctx, []events.Event{
		{EventID: "fresh", TS: 2, UserID: "u1", SessionID: "s1", Route: "/y", Action: "view", Metadata: map[string]interface{}{}},
	}, "http")
	require.NoError(t, err)

	n, err := s.PurgeExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	var remaining string
	require.NoError(t, s.conn.QueryRowContext(ctx, "SELECT event_id FROM raw_events").Scan(&remaining))
	require.Equal(t, "fresh", remaining)
}
