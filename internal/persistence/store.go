// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

// Package persistence is the store stage of the durability pipeline:
// a DuckDB-backed raw-event collection with a unique index on
// eventId, and an aggregates collection keyed by (window, bucketStart).
// Every operation here is called off the broadcast path, from the async
// durability consumer — never from an ingest request goroutine.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/BiopticBug/pulsewire/internal/config"
)

// ErrUnready is returned by Ping when the backend does not answer a
// liveness probe, backing the /ready endpoint's BackendUnready error kind.
var ErrUnready = fmt.Errorf("persistence: backend not ready")

// Store wraps the DuckDB connection used for raw-event and aggregate
// persistence.
type Store struct {
	conn *sql.DB
}

// Open connects to the DuckDB database at cfg.Path, tuning the connection
// per cfg, and ensures the schema exists. A failure here is
// a fatal condition: the caller should refuse to start.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("persistence: create data directory %s: %w", dir, err)
		}
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "512MB"
	}

	dsn := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s", cfg.Path, threads, maxMemory)
	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: open duckdb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("persistence: ping duckdb: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.EnsureSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("persistence: ensure schema: %w", err)
	}

	return s, nil
}

// Ping answers the readiness probe backing GET /ready.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnready, err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
