// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

// Package config loads Pulsewire's runtime configuration from defaults, an
// optional YAML file, and environment variables (highest priority), in that
// order, using koanf v2.
package config

import "time"

// Config holds every configuration section the service needs at startup.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	NATS       NATSConfig       `koanf:"nats"`
	Security   SecurityConfig   `koanf:"security"`
	Ingestion  IngestionConfig  `koanf:"ingestion"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds the two listener ports and CORS/timeout settings.
//
// Environment Variables:
//   - PORT: request-endpoint base port; the streaming endpoint listens on PORT+1 (default: 4000)
//   - ALLOWED_ORIGINS: comma-separated CORS allow-list (default: none)
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StreamPort is the streaming endpoint's port, always Port+1.
func (s ServerConfig) StreamPort() int { return s.Port + 1 }

// DatabaseConfig configures the DuckDB-backed persistence store.
//
// Environment Variables:
//   - MONGODB_URI: persistence endpoint. Reinterpreted as the DuckDB DSN
//     (a filesystem path) — see DESIGN.md for why.
//   - DATABASE_MAX_MEMORY: DuckDB max_memory tuning (default: 512MB)
//   - DATABASE_THREADS: DuckDB worker threads, 0 = runtime.NumCPU() (default: 0)
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// NATSConfig configures the embedded JetStream relay used by the
// persistence adapter's async durability pipeline.
//
// Environment Variables:
//   - NATS_EMBEDDED: run an in-process JetStream server (default: true)
//   - NATS_URL: client URL when not embedded (default: nats://127.0.0.1:4222)
//   - NATS_STORE_DIR: JetStream file store directory (default: ./data/nats)
type NATSConfig struct {
	Embedded bool   `koanf:"embedded"`
	URL      string `koanf:"url"`
	StoreDir string `koanf:"store_dir"`
}

// SecurityConfig configures the Auth Verifier and request-endpoint rate limiting.
//
// Environment Variables:
//   - JWT_SECRET: shared signing secret for the bearer credential
//   - RATE_LIMIT_RPS: per-source requests-per-second cap on /ingest (default: 20)
type SecurityConfig struct {
	JWTSecret     string        `koanf:"jwt_secret"`
	TokenTTL      time.Duration `koanf:"token_ttl"`
	RateLimitRPS  int           `koanf:"rate_limit_rps"`
}

// IngestionConfig configures event validation/persistence limits.
//
// Environment Variables:
//   - RAW_EVENTS_TTL_DAYS: raw-event retention before TTL purge (default: 7)
//   - MAX_MSG_BYTES: max streaming frame size in bytes (default: 32768)
type IngestionConfig struct {
	RawEventsTTLDays int   `koanf:"raw_events_ttl_days"`
	MaxMsgBytes      int64 `koanf:"max_msg_bytes"`
}

// RawEventsTTL returns the configured retention as a time.Duration.
func (i IngestionConfig) RawEventsTTL() time.Duration {
	return time.Duration(i.RawEventsTTLDays) * 24 * time.Hour
}

// LoggingConfig configures the ambient zerolog pipeline.
//
// Environment Variables:
//   - LOG_LEVEL: trace|debug|info|warn|error (default: info)
//   - LOG_FORMAT: json|console (default: json)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
