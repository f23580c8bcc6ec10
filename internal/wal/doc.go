// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

// Package wal buffers an ingested batch's relay record on BadgerDB before
// the NATS publish, so a broker outage or process crash between ingestion
// and relay never loses the batch.
//
// # Architecture
//
//	Ingest → WAL Write (fsync) → NATS publish → WAL Confirm
//	                                          ↓ (on failure)
//	                                    entry stays pending, retried
//
// RetryLoop periodically republishes pending entries with exponential
// backoff; Compactor removes confirmed entries and runs BadgerDB's value
// log GC. Because persistence here is explicitly off the ingestion
// critical path, neither loop blocks an ingestion response, and a pending
// entry surviving a crash is simply retried on the next tick — there is no
// separate startup recovery pass.
//
// # Usage
//
//	cfg := wal.LoadConfig()
//	w, err := wal.Open(&cfg)
//	...
//	entryID, err := w.Write(ctx, record)
//	...
//	if err := relay.Publish(record); err != nil {
//	    return err // entry stays in the WAL for RetryLoop to pick up
//	}
//	w.Confirm(ctx, entryID)
//
// # Configuration
//
// Loaded from WAL_* environment variables (WAL_PATH, WAL_SYNC_WRITES,
// WAL_RETRY_INTERVAL, WAL_MAX_RETRIES, WAL_COMPACT_INTERVAL, WAL_ENTRY_TTL,
// and BadgerDB tuning knobs); see Config and LoadConfig.
package wal
