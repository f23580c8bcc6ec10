// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package aggregate

import (
	"context"
	"time"

	"github.com/BiopticBug/pulsewire/internal/logging"
	"github.com/BiopticBug/pulsewire/internal/metrics"
)

// DefaultJanitorInterval is how often the janitor sweeps for out-of-horizon
// buckets.
const DefaultJanitorInterval = 5 * time.Second

// RawEventPurger deletes raw_events rows older than ttl, standing in for the
// TTL index a native DuckDB mechanism lacks.
type RawEventPurger interface {
	PurgeExpired(ctx context.Context, ttl time.Duration) (int64, error)
}

// Janitor periodically evicts buckets that have fallen outside their
// window's retention horizon, and, when a purger is configured, sweeps
// expired raw_events rows on the same ticker. It implements suture.Service
// so it can be supervised in the messaging layer alongside the durability
// consumer.
type Janitor struct {
	agg      *Aggregator
	interval time.Duration
	purger   RawEventPurger
	rawTTL   time.Duration
}

// NewJanitor creates a Janitor that sweeps agg every interval. A zero or
// negative interval falls back to DefaultJanitorInterval.
func NewJanitor(agg *Aggregator, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &Janitor{agg: agg, interval: interval}
}

// WithRawEventPurge configures the janitor to also purge raw_events rows
// older than ttl on every tick.
func (j *Janitor) WithRawEventPurge(purger RawEventPurger, ttl time.Duration) *Janitor {
	j.purger = purger
	j.rawTTL = ttl
	return j
}

// Serve runs the ticker-driven eviction loop until ctx is canceled.
func (j *Janitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			evicted := j.agg.EvictBefore(now)
			if evicted > 0 {
				metrics.BucketsEvictedTotal.Add(float64(evicted))
				logging.Debug().Int("evicted", evicted).Msg("bucket janitor evicted out-of-horizon buckets")
			}
			j.purgeRawEvents(ctx)
		}
	}
}

func (j *Janitor) purgeRawEvents(ctx context.Context) {
	if j.purger == nil {
		return
	}
	purged, err := j.purger.PurgeExpired(ctx, j.rawTTL)
	if err != nil {
		logging.Warn().Err(err).Msg("bucket janitor raw_events purge failed")
		return
	}
	if purged > 0 {
		logging.Debug().Int64("purged", purged).Msg("bucket janitor purged expired raw events")
	}
}

// String identifies this service for suture's event hook logging.
func (j *Janitor) String() string { return "bucket-janitor" }
