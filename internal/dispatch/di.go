package dispatch

import (
	"github.com/foxseedlab/dispatchd/internal/config"
	"github.com/foxseedlab/dispatchd/internal/permission"
	"github.com/foxseedlab/dispatchd/internal/session"
	"github.com/foxseedlab/dispatchd/internal/snapshot"
	"github.com/foxseedlab/dispatchd/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (permission.Builds, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return permission.NewBuilds(cfg.LegacyBuildSuffixes), nil
	})
	do.Provide(injector, func(i do.Injector) (*Engine, error) {
		dir := do.MustInvoke[session.Directory](i)
		snapshots := do.MustInvoke[snapshot.Provider](i)
		perms := do.MustInvoke[permission.Evaluator](i)
		builds := do.MustInvoke[permission.Builds](i)
		alerts := do.MustInvoke[webhook.Sender](i)
		return NewEngine(dir, snapshots, perms, builds, alerts), nil
	})
}
