package feedback

import (
	"confattend/internal/attendance"
	"confattend/internal/schedule"
	"confattend/internal/store"

	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		db := do.MustInvoke[*store.DB](i)
		return NewService(
			NewRepository(db),
			attendance.NewRepository(db),
			do.MustInvoke[schedule.Clock](i),
		), nil
	})
}
