// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package durability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BiopticBug/pulsewire/internal/aggregate"
	"github.com/BiopticBug/pulsewire/internal/config"
	"github.com/BiopticBug/pulsewire/internal/events"
	"github.com/BiopticBug/pulsewire/internal/persistence"
)

func newTestConsumer(t *testing.T) *Consumer {
	t.Helper()
	store, err := persistence.Open(config.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &Consumer{store: store, breaker: NewCircuitBreaker(DefaultCircuitBreakerConfig())}
}

func TestPersistInsertsRawEventsAndAggregates(t *testing.T) {
	c := newTestConsumer(t)
	ctx := context.Background()

	rec := BatchRecord{
		ReceivedAtMillis: 120_000,
		Source:           "http",
		Events: []events.Event{
			{EventID: "e1", TS: 1, UserID: "u1", SessionID: "s1", Route: "/a", Action: "view", Metadata: map[string]interface{}{}},
			{EventID: "e2", TS: 2, UserID: "u1", SessionID: "s1", Route: "/b", Action: "error", Metadata: map[string]interface{}{}},
		},
	}

	require.NoError(t, c.persist(ctx, rec))

	rawCount, err := c.store.CountRawEvents(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), rawCount)

	for _, windowSec := range aggregate.Windows {
		bucketStart := aggregate.BucketStart(rec.ReceivedAtMillis, windowSec)
		cp, ok, err := c.store.GetAggregate(ctx, windowSec, bucketStart)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, int64(2), cp.Count)
		require.Equal(t, int64(1), cp.Errors)
	}
}

func TestPersistSkipsEmptyBatch(t *testing.T) {
	c := newTestConsumer(t)
	require.NoError(t, c.persist(context.Background(), BatchRecord{ReceivedAtMillis: 1, Source: "http"}))
}
