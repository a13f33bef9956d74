package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/dispatchd/internal/config"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Env                        string        `env:"ENV" envDefault:"production"`
	GatewayAddr                string        `env:"GATEWAY_ADDR" envDefault:":8080"`
	DatabaseURL                string        `env:"DATABASE_URL"`
	SnapshotSource             string        `env:"SNAPSHOT_SOURCE" envDefault:"postgres"`
	SnapshotSeedPath           string        `env:"SNAPSHOT_SEED_PATH"`
	LegacyBuildSuffixes        []string      `env:"LEGACY_BUILD_SUFFIXES" envSeparator:"," envDefault:"2015"`
	SessionSendBuffer          int           `env:"SESSION_SEND_BUFFER" envDefault:"64"`
	HeartbeatInterval          time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"41250ms"`
	IdentifyTimeout            time.Duration `env:"IDENTIFY_TIMEOUT" envDefault:"10s"`
	DiagnosticsWebhookURL      string        `env:"DIAGNOSTICS_WEBHOOK_URL"`
	DiagnosticsAlertsPerMinute int           `env:"DIAGNOSTICS_ALERTS_PER_MINUTE" envDefault:"30"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*internalconfig.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	} else if err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		GatewayAddr:                raw.GatewayAddr,
		DatabaseURL:                raw.DatabaseURL,
		SnapshotSource:             raw.SnapshotSource,
		SnapshotSeedPath:           raw.SnapshotSeedPath,
		LegacyBuildSuffixes:        raw.LegacyBuildSuffixes,
		SessionSendBuffer:          raw.SessionSendBuffer,
		HeartbeatInterval:          raw.HeartbeatInterval,
		IdentifyTimeout:            raw.IdentifyTimeout,
		DiagnosticsWebhookURL:      raw.DiagnosticsWebhookURL,
		DiagnosticsAlertsPerMinute: raw.DiagnosticsAlertsPerMinute,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
