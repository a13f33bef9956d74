package config

import (
	"testing"
	"time"

	internalconfig "github.com/foxseedlab/dispatchd/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/dispatchd")
	t.Setenv("SNAPSHOT_SOURCE", "postgres")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SnapshotSource != internalconfig.SnapshotSourcePostgres {
		t.Fatalf("unexpected snapshot source: %q", cfg.SnapshotSource)
	}
	if cfg.GatewayAddr != ":8080" {
		t.Fatalf("unexpected gateway addr: %q", cfg.GatewayAddr)
	}
	if len(cfg.LegacyBuildSuffixes) != 1 || cfg.LegacyBuildSuffixes[0] != "2015" {
		t.Fatalf("unexpected legacy suffixes: %v", cfg.LegacyBuildSuffixes)
	}
	if cfg.HeartbeatInterval != 41250*time.Millisecond {
		t.Fatalf("unexpected heartbeat interval: %s", cfg.HeartbeatInterval)
	}
}

func TestLoad_LegacySuffixList(t *testing.T) {
	t.Setenv("SNAPSHOT_SOURCE", "memory")
	t.Setenv("LEGACY_BUILD_SUFFIXES", "2015,2016")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.LegacyBuildSuffixes) != 2 || cfg.LegacyBuildSuffixes[1] != "2016" {
		t.Fatalf("unexpected legacy suffixes: %v", cfg.LegacyBuildSuffixes)
	}
}

func TestLoad_PostgresWithoutDatabaseURL(t *testing.T) {
	t.Setenv("SNAPSHOT_SOURCE", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}
