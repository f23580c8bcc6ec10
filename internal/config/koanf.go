// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the searched config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfigPaths lists where an optional YAML override file is searched,
// in priority order.
var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/pulsewire/config.yaml",
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            4000,
			Host:            "0.0.0.0",
			AllowedOrigins:  []string{},
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "./data/pulsewire.duckdb",
			MaxMemory: "512MB",
			Threads:   0,
		},
		NATS: NATSConfig{
			Embedded: true,
			URL:      "nats://127.0.0.1:4222",
			StoreDir: "./data/nats",
		},
		Security: SecurityConfig{
			JWTSecret:    "",
			TokenTTL:     12 * time.Hour,
			RateLimitRPS: 20,
		},
		Ingestion: IngestionConfig{
			RawEventsTTLDays: 7,
			MaxMsgBytes:      32768,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// sliceConfigPaths lists koanf paths that must be split from a
// comma-separated environment string into a slice.
var sliceConfigPaths = []string{"server.allowed_origins"}

// envMappings maps the documented environment variable names (plus a few
// supplementary ones added for the durability and security knobs) to koanf
// dotted paths.
var envMappings = map[string]string{
	"port":                 "server.port",
	"host":                 "server.host",
	"allowed_origins":      "server.allowed_origins",
	"mongodb_uri":          "database.path",
	"database_max_memory":  "database.max_memory",
	"database_threads":     "database.threads",
	"nats_embedded":        "nats.embedded",
	"nats_url":             "nats.url",
	"nats_store_dir":       "nats.store_dir",
	"jwt_secret":           "security.jwt_secret",
	"rate_limit_rps":       "security.rate_limit_rps",
	"raw_events_ttl_days":  "ingestion.raw_events_ttl_days",
	"max_msg_bytes":        "ingestion.max_msg_bytes",
	"log_level":            "logging.level",
	"log_format":           "logging.format",
}

// Load builds a Config from defaults, an optional YAML file, and
// environment variables, validating the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("", ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, fmt.Errorf("config: normalize slices: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform maps a raw environment variable name to its koanf path. Names
// not present in envMappings fall back to a lowercase dotted guess so
// unanticipated overrides still have a predictable shape.
func envTransform(key string) string {
	lower := strings.ToLower(key)
	if mapped, ok := envMappings[lower]; ok {
		return mapped
	}
	return strings.ReplaceAll(lower, "_", ".")
}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		switch val.(type) {
		case []interface{}, []string:
			continue
		}
		s, ok := val.(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if err := k.Set(path, parts); err != nil {
			return err
		}
	}
	return nil
}
