// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package config

import "fmt"

// Validate checks that the configuration is internally consistent and that
// required fields are present. A startup that fails validation refuses to
// start with a non-zero exit rather than run with a broken configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65534 {
		return fmt.Errorf("server.port must be between 1 and 65534, got %d", c.Server.Port)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret (JWT_SECRET) is required")
	}
	if len(c.Security.JWTSecret) < 16 {
		return fmt.Errorf("security.jwt_secret (JWT_SECRET) must be at least 16 characters")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path (MONGODB_URI) is required")
	}
	if c.Ingestion.RawEventsTTLDays <= 0 {
		return fmt.Errorf("ingestion.raw_events_ttl_days must be positive, got %d", c.Ingestion.RawEventsTTLDays)
	}
	if c.Ingestion.MaxMsgBytes <= 0 {
		return fmt.Errorf("ingestion.max_msg_bytes must be positive, got %d", c.Ingestion.MaxMsgBytes)
	}
	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("security.rate_limit_rps must be positive, got %d", c.Security.RateLimitRPS)
	}
	return nil
}
