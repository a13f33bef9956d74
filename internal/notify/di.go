package notify

import (
	"github.com/foxseedlab/dispatchd/internal/dispatch"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Notifier, error) {
		return NewNotifier(do.MustInvoke[*dispatch.Engine](i)), nil
	})
}
