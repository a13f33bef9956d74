package config

import (
	"fmt"
	"time"
)

const (
	SnapshotSourcePostgres = "postgres"
	SnapshotSourceMemory   = "memory"
)

type Config struct {
	Env                        string
	GatewayAddr                string
	DatabaseURL                string
	SnapshotSource             string
	SnapshotSeedPath           string
	LegacyBuildSuffixes        []string
	SessionSendBuffer          int
	HeartbeatInterval          time.Duration
	IdentifyTimeout            time.Duration
	DiagnosticsWebhookURL      string
	DiagnosticsAlertsPerMinute int
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.SnapshotSource {
	case SnapshotSourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SNAPSHOT_SOURCE=%s", SnapshotSourcePostgres)
		}
	case SnapshotSourceMemory:
	default:
		return fmt.Errorf("SNAPSHOT_SOURCE must be %q or %q, got %q", SnapshotSourcePostgres, SnapshotSourceMemory, c.SnapshotSource)
	}
	if c.SessionSendBuffer <= 0 {
		return fmt.Errorf("SESSION_SEND_BUFFER must be positive, got %d", c.SessionSendBuffer)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("HEARTBEAT_INTERVAL must be positive, got %s", c.HeartbeatInterval)
	}
	if c.IdentifyTimeout <= 0 {
		return fmt.Errorf("IDENTIFY_TIMEOUT must be positive, got %s", c.IdentifyTimeout)
	}
	if c.DiagnosticsAlertsPerMinute < 0 {
		return fmt.Errorf("DIAGNOSTICS_ALERTS_PER_MINUTE must not be negative, got %d", c.DiagnosticsAlertsPerMinute)
	}
	for _, suffix := range c.LegacyBuildSuffixes {
		if suffix == "" {
			return fmt.Errorf("LEGACY_BUILD_SUFFIXES must not contain empty entries")
		}
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "GATEWAY_ADDR", value: c.GatewayAddr},
		{name: "SNAPSHOT_SOURCE", value: c.SnapshotSource},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
