// Package app wires the process-level pieces shared by the api and worker
// binaries: configuration, logging and the dependency graph.
package app

import (
	"log/slog"
	"os"
	"time"

	"confattend/internal/announce"
	"confattend/internal/attendance"
	"confattend/internal/auth"
	"confattend/internal/config"
	"confattend/internal/feedback"
	"confattend/internal/handler"
	"confattend/internal/live"
	"confattend/internal/queue"
	"confattend/internal/schedule"
	"confattend/internal/store"
	"confattend/internal/zones"

	"github.com/lmittmann/tint"
	"github.com/samber/do/v2"
)

func MustLoadConfig() *config.App {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitLogger installs a colored handler in development and JSON otherwise.
func InitLogger(cfg *config.App) {
	if cfg.IsDevelopment() {
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		})))
		return
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

func SetupDI(cfg *config.App) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue[schedule.Clock](injector, schedule.SystemClock{})
	store.RegisterDI(injector)
	queue.RegisterDI(injector)
	live.RegisterDI(injector)
	zones.RegisterDI(injector)
	attendance.RegisterDI(injector)
	feedback.RegisterDI(injector)
	auth.RegisterDI(injector)
	announce.RegisterDI(injector)
	handler.RegisterDI(injector)

	return injector
}

// Shutdown closes every provided service that implements a shutdown hook.
func Shutdown(injector do.Injector) {
	if report := injector.Shutdown(); report != nil && !report.Succeed {
		slog.Error("dependency shutdown incomplete", "error", report.Error())
	}
}
