// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	os.Clearenv()
	for k, v := range vars {
		require.NoError(t, os.Setenv(k, v))
	}
	t.Cleanup(os.Clearenv)
}

func TestLoadAppliesDefaultsAndRequiredEnv(t *testing.T) {
	withEnv(t, map[string]string{
		"JWT_SECRET": "a-shared-signing-secret",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 4001, cfg.Server.StreamPort())
	assert.Equal(t, 7, cfg.Ingestion.RawEventsTTLDays)
	assert.EqualValues(t, 32768, cfg.Ingestion.MaxMsgBytes)
	assert.Equal(t, "./data/pulsewire.duckdb", cfg.Database.Path)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	withEnv(t, map[string]string{
		"JWT_SECRET":          "a-shared-signing-secret",
		"PORT":                "9090",
		"MONGODB_URI":         "/var/data/events.duckdb",
		"ALLOWED_ORIGINS":     "https://a.example, https://b.example",
		"RAW_EVENTS_TTL_DAYS": "30",
		"MAX_MSG_BYTES":       "65536",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/data/events.duckdb", cfg.Database.Path)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 30, cfg.Ingestion.RawEventsTTLDays)
	assert.EqualValues(t, 65536, cfg.Ingestion.MaxMsgBytes)
}

func TestLoadMissingSecretFails(t *testing.T) {
	withEnv(t, map[string]string{})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoadShortSecretFails(t *testing.T) {
	withEnv(t, map[string]string{"JWT_SECRET": "tooshort"})

	_, err := Load()
	require.Error(t, err)
}
