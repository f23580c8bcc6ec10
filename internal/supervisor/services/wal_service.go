// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package services

import (
	"context"
	"fmt"
)

// WALStartStopper is satisfied by *wal.RetryLoop and *wal.Compactor. Declared
// locally so the retry-loop and compactor services depend only on this
// lifecycle, not on the concrete wal types.
type WALStartStopper interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// WALRetryLoopService adapts the WAL retry loop's Start/Stop lifecycle to
// suture's Serve(ctx) pattern: it retries unconfirmed WAL entries against
// NATS with backoff until the batch is relayed or abandoned.
type WALRetryLoopService struct {
	retryLoop WALStartStopper
}

// NewWALRetryLoopService wraps retryLoop for supervision.
func NewWALRetryLoopService(retryLoop WALStartStopper) *WALRetryLoopService {
	return &WALRetryLoopService{retryLoop: retryLoop}
}

// Serve implements suture.Service.
func (s *WALRetryLoopService) Serve(ctx context.Context) error {
	if err := s.retryLoop.Start(ctx); err != nil {
		return fmt.Errorf("wal-retry-loop: start: %w", err)
	}
	<-ctx.Done()
	s.retryLoop.Stop()
	return ctx.Err()
}

// String satisfies suture.Service.
func (s *WALRetryLoopService) String() string { return "wal-retry-loop" }

// WALCompactorService adapts the WAL compactor's Start/Stop lifecycle to
// suture's Serve(ctx) pattern: it reclaims confirmed entries and triggers
// BadgerDB value-log GC on an interval.
type WALCompactorService struct {
	compactor WALStartStopper
}

// NewWALCompactorService wraps compactor for supervision.
func NewWALCompactorService(compactor WALStartStopper) *WALCompactorService {
	return &WALCompactorService{compactor: compactor}
}

// Serve implements suture.Service.
func (s *WALCompactorService) Serve(ctx context.Context) error {
	if err := s.compactor.Start(ctx); err != nil {
		return fmt.Errorf("wal-compactor: start: %w", err)
	}
	<-ctx.Done()
	s.compactor.Stop()
	return ctx.Err()
}

// String satisfies suture.Service.
func (s *WALCompactorService) String() string { return "wal-compactor" }
