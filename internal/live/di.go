package live

import (
	"confattend/internal/config"
	"confattend/internal/store"

	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Broker, error) {
		cfg := do.MustInvoke[*config.App](i)
		if cfg.LiveBackend == "memory" {
			return NewMemory(), nil
		}
		r := do.MustInvoke[*store.Redis](i)
		return NewRedis(r.Client), nil
	})
}
