package auth

import (
	"confattend/internal/config"
	"confattend/internal/schedule"
	"confattend/internal/store"

	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Revocations, error) {
		cfg := do.MustInvoke[*config.App](i)
		if !cfg.NeedsRedis() {
			return NewMemoryRevocations(), nil
		}
		r := do.MustInvoke[*store.Redis](i)
		return NewRedisRevocations(r.Client), nil
	})
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		cfg := do.MustInvoke[*config.App](i)
		signer := Signer{
			Issuer:     cfg.JWTIssuer,
			Key:        []byte(cfg.JWTSigningKey),
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
		}
		return NewService(
			NewRepository(do.MustInvoke[*store.DB](i)),
			signer,
			do.MustInvoke[Revocations](i),
			do.MustInvoke[schedule.Clock](i),
		), nil
	})
}
