package discord

import (
	"fmt"
	"log/slog"

	"github.com/foxseedlab/dispatchd/internal/config"
	"github.com/foxseedlab/dispatchd/internal/session"
	"github.com/foxseedlab/dispatchd/internal/snapshot"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*StateProvider, error) {
		cfg := do.MustInvoke[*config.Config](i)
		p := NewStateProvider()
		if cfg.SnapshotSeedPath != "" {
			if err := p.LoadSeed(cfg.SnapshotSeedPath); err != nil {
				return nil, fmt.Errorf("failed to seed guild cache: %w", err)
			}
			slog.Info("guild cache seeded", "path", cfg.SnapshotSeedPath)
		}
		return p, nil
	})
	do.Provide(injector, func(i do.Injector) (snapshot.Provider, error) {
		return do.MustInvoke[*StateProvider](i), nil
	})
	do.Provide(injector, func(i do.Injector) (session.Identifier, error) {
		return do.MustInvoke[*StateProvider](i), nil
	})
}
