package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"confattend/internal/announce"
	"confattend/internal/app"
	"confattend/internal/config"

	"github.com/samber/do/v2"
)

// Worker consumes celebration jobs and forwards them to the announcement webhook.
func main() {
	cfg := app.MustLoadConfig()
	app.InitLogger(cfg)
	if err := run(cfg); err != nil {
		slog.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("worker stopped")
}

func run(cfg *config.App) error {
	if cfg.QueueBackend == "memory" {
		return errors.New("worker needs QUEUE_BACKEND=redis; the memory queue is drained by the api process")
	}
	injector := app.SetupDI(cfg)
	defer app.Shutdown(injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := do.Invoke[*announce.Worker](injector)
	if err != nil {
		return fmt.Errorf("resolve announce worker: %w", err)
	}
	slog.Info("worker started", "announce", cfg.AnnounceURL != "")
	return w.Run(ctx)
}
