package attendance

import (
	"log/slog"

	"confattend/internal/config"
	"confattend/internal/live"
	"confattend/internal/queue"
	"confattend/internal/schedule"
	"confattend/internal/store"
	"confattend/internal/zones"

	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*schedule.Registry, error) {
		cfg := do.MustInvoke[*config.App](i)
		reg := schedule.DefaultRegistry()
		if cfg.ScheduleFile != "" {
			r, err := schedule.LoadFile(cfg.ScheduleFile)
			if err != nil {
				return nil, err
			}
			reg = r
		}
		for _, err := range reg.Validate() {
			slog.Warn("schedule inconsistency", "error", err)
		}
		return reg, nil
	})
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		cfg := do.MustInvoke[*config.App](i)
		db := do.MustInvoke[*store.DB](i)
		return NewService(
			NewRepository(db),
			do.MustInvoke[*schedule.Registry](i),
			do.MustInvoke[schedule.Clock](i),
			do.MustInvoke[zones.Store](i),
			do.MustInvoke[live.Broker](i),
			do.MustInvoke[queue.Queue](i),
			cfg.AutoMarkDelay,
		), nil
	})
}
