package handler

import (
	"confattend/internal/attendance"
	"confattend/internal/auth"
	"confattend/internal/config"
	"confattend/internal/feedback"
	"confattend/internal/live"
	"confattend/internal/schedule"
	"confattend/internal/zones"

	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Handler, error) {
		cfg := do.MustInvoke[*config.App](i)
		return New(
			do.MustInvoke[*attendance.Service](i),
			do.MustInvoke[*feedback.Service](i),
			do.MustInvoke[zones.Store](i),
			do.MustInvoke[*auth.Service](i),
			do.MustInvoke[live.Broker](i),
			do.MustInvoke[schedule.Clock](i),
			cfg.PollInterval,
		), nil
	})
}
