package announce

import (
	"confattend/internal/config"
	"confattend/internal/queue"

	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Sender, error) {
		cfg := do.MustInvoke[*config.App](i)
		return NewHTTPSender(cfg.AnnounceURL), nil
	})
	do.Provide(injector, func(i do.Injector) (*Worker, error) {
		return NewWorker(do.MustInvoke[queue.Queue](i), do.MustInvoke[Sender](i)), nil
	})
}
