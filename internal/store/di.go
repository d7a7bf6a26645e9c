package store

import (
	"context"
	"fmt"
	"time"

	"confattend/internal/config"

	"github.com/samber/do/v2"
)

const databaseInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*DB, error) {
		cfg := do.MustInvoke[*config.App](i)
		ctx, cancel := context.WithTimeout(context.Background(), databaseInitTimeout)
		defer cancel()

		db, err := NewDB(ctx, cfg.StoreDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		if err := Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migration: %w", err)
		}
		return db, nil
	})
	do.Provide(injector, func(i do.Injector) (*Redis, error) {
		cfg := do.MustInvoke[*config.App](i)
		return NewRedis(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TLS:      cfg.RedisTLS,
		}), nil
	})
}
