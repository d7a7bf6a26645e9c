package zones

import (
	"context"
	"fmt"
	"time"

	"confattend/internal/config"
	"confattend/internal/store"

	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Store, error) {
		cfg := do.MustInvoke[*config.App](i)
		if cfg.ZoneBackend == "memory" {
			return NewMemory(Defaults), nil
		}
		r := do.MustInvoke[*store.Redis](i)
		zs := NewRedis(r.Client)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := zs.Seed(ctx, Defaults); err != nil {
			return nil, fmt.Errorf("seed zones: %w", err)
		}
		return zs, nil
	})
}
