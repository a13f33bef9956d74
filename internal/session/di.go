package session

import (
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Registry, error) {
		return NewRegistry(), nil
	})
	do.Provide(injector, func(i do.Injector) (Directory, error) {
		return do.MustInvoke[*Registry](i), nil
	})
}
