// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package services

import (
	"context"
	"time"

	"github.com/BiopticBug/pulsewire/internal/metrics"
	"github.com/BiopticBug/pulsewire/internal/wal"
)

// DefaultWALStatsInterval is how often WALMetricsService polls WAL stats.
const DefaultWALStatsInterval = 10 * time.Second

// WALMetricsService polls a BadgerWAL on a ticker and republishes its
// pending-entry count as the pulsewire_wal_pending_entries gauge, mirroring
// the bucket janitor's ticker-driven shape in internal/aggregate.
type WALMetricsService struct {
	w        *wal.BadgerWAL
	interval time.Duration
}

// NewWALMetricsService polls w every interval. A zero or negative interval
// falls back to DefaultWALStatsInterval.
func NewWALMetricsService(w *wal.BadgerWAL, interval time.Duration) *WALMetricsService {
	if interval <= 0 {
		interval = DefaultWALStatsInterval
	}
	return &WALMetricsService{w: w, interval: interval}
}

// Serve implements suture.Service.
func (s *WALMetricsService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := s.w.Stats()
			metrics.WALPendingEntries.Set(float64(stats.PendingCount))
		}
	}
}

// String satisfies suture.Service.
func (s *WALMetricsService) String() string { return "wal-metrics" }
