// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

// Package config loads and validates the Auditus runtime configuration from
// layered sources: built-in defaults, an optional YAML file, and environment
// variables, in ascending precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the complete runtime configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Audit    AuditConfig    `koanf:"audit"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuditConfig configures the event store and retention.
type AuditConfig struct {
	// Capacity bounds the in-memory store; the oldest events are evicted
	// beyond it.
	Capacity int `koanf:"capacity"`

	// RetentionDays is the default age cutoff for scheduled pruning and for
	// DELETE requests that omit daysToKeep.
	RetentionDays int `koanf:"retention_days"`

	// CleanupInterval is how often the retention service prunes. Zero
	// disables scheduled pruning; the DELETE endpoint still works.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	Forward ForwardConfig `koanf:"forward"`
}

// ForwardConfig configures the optional webhook forwarder that mirrors
// accepted events to an external collector.
type ForwardConfig struct {
	Enabled    bool          `koanf:"enabled"`
	URL        string        `koanf:"url"`
	BufferSize int           `koanf:"buffer_size"`
	Timeout    time.Duration `koanf:"timeout"`
}

// SecurityConfig configures authentication and request protection.
type SecurityConfig struct {
	// AuthMode selects how the actor behind a request is resolved:
	// "jwt" reads a bearer token, "none" treats every caller as anonymous.
	AuthMode string `koanf:"auth_mode"`

	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks cross-field constraints. It is called by LoadWithKoanf and
// again by main on the final config.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Audit.Capacity <= 0 {
		return fmt.Errorf("audit.capacity must be positive, got %d", c.Audit.Capacity)
	}
	if c.Audit.RetentionDays < 1 {
		return fmt.Errorf("audit.retention_days must be at least 1, got %d", c.Audit.RetentionDays)
	}
	if c.Audit.CleanupInterval < 0 {
		return fmt.Errorf("audit.cleanup_interval must not be negative, got %s", c.Audit.CleanupInterval)
	}

	switch c.Security.AuthMode {
	case "none":
	case "jwt":
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters in jwt mode")
		}
	default:
		return fmt.Errorf("security.auth_mode must be none or jwt, got %q", c.Security.AuthMode)
	}

	if c.Audit.Forward.Enabled {
		if c.Audit.Forward.URL == "" {
			return fmt.Errorf("audit.forward.url is required when forwarding is enabled")
		}
		if c.Audit.Forward.BufferSize <= 0 {
			return fmt.Errorf("audit.forward.buffer_size must be positive, got %d", c.Audit.Forward.BufferSize)
		}
	}
	return nil
}
