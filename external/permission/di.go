package permission

import (
	"github.com/foxseedlab/dispatchd/internal/permission"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (permission.Evaluator, error) {
		builds := do.MustInvoke[permission.Builds](i)
		return NewRoleEvaluator(builds), nil
	})
}
