package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configloader "github.com/foxseedlab/dispatchd/external/config"
	"github.com/foxseedlab/dispatchd/external/discord"
	"github.com/foxseedlab/dispatchd/external/gateway"
	permissionimpl "github.com/foxseedlab/dispatchd/external/permission"
	repositoryimpl "github.com/foxseedlab/dispatchd/external/repository"
	webhookimpl "github.com/foxseedlab/dispatchd/external/webhook"
	"github.com/foxseedlab/dispatchd/internal/config"
	"github.com/foxseedlab/dispatchd/internal/dispatch"
	"github.com/foxseedlab/dispatchd/internal/notify"
	"github.com/foxseedlab/dispatchd/internal/session"
	"github.com/samber/do/v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "snapshot_source", cfg.SnapshotSource)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: starting gateway")
	runGateway(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	switch cfg.SnapshotSource {
	case config.SnapshotSourceMemory:
		discord.RegisterDI(injector)
	default:
		repositoryimpl.RegisterDI(injector)
	}
	permissionimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	session.RegisterDI(injector)
	dispatch.RegisterDI(injector)
	notify.RegisterDI(injector)
	gateway.RegisterDI(injector)

	return injector
}

func runGateway(cfg *config.Config, injector do.Injector) {
	srv, err := do.Invoke[*gateway.Server](injector)
	if err != nil {
		slog.Error("failed to resolve gateway server", "error", err)
		os.Exit(1)
	}
	// No mutation handlers run in this process; resolving checks the wiring for embedders.
	if _, err := do.Invoke[*notify.Notifier](injector); err != nil {
		slog.Error("failed to resolve notifier", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/gateway", srv)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	httpServer := &http.Server{
		Addr:              cfg.GatewayAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		slog.Info("gateway listening", "addr", cfg.GatewayAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("gateway listen failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("gateway shutdown failed", "error", err)
	}
}
