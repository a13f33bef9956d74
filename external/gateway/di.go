package gateway

import (
	"github.com/foxseedlab/dispatchd/internal/config"
	"github.com/foxseedlab/dispatchd/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		registry := do.MustInvoke[*session.Registry](i)
		identifier := do.MustInvoke[session.Identifier](i)
		return NewServer(registry, identifier, Options{
			HeartbeatInterval: cfg.HeartbeatInterval,
			IdentifyTimeout:   cfg.IdentifyTimeout,
			SendBuffer:        cfg.SessionSendBuffer,
		}), nil
	})
}
