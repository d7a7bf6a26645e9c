package queue

import (
	"confattend/internal/config"
	"confattend/internal/store"

	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Queue, error) {
		cfg := do.MustInvoke[*config.App](i)
		if cfg.QueueBackend == "memory" {
			return NewInMemory(64), nil
		}
		r := do.MustInvoke[*store.Redis](i)
		return NewRedisQueue(r.Client, defaultKey), nil
	})
}
