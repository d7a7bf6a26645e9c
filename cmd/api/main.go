package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"confattend/internal/announce"
	"confattend/internal/app"
	"confattend/internal/auth"
	"confattend/internal/config"
	"confattend/internal/handler"
	"confattend/internal/httpmiddleware"
	"confattend/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do/v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := app.MustLoadConfig()
	app.InitLogger(cfg)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := run(cfg); err != nil {
		slog.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

// run owns the dependency graph; every return path shuts it down.
func run(cfg *config.App) error {
	injector := app.SetupDI(cfg)
	defer app.Shutdown(injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AdminEmail != "" {
		authSvc, err := do.Invoke[*auth.Service](injector)
		if err != nil {
			return fmt.Errorf("resolve auth: %w", err)
		}
		if err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	router, err := newRouter(cfg, injector)
	if err != nil {
		return err
	}

	// a memory queue is only visible to this process, so the announcer runs here
	if cfg.QueueBackend == "memory" {
		w, err := do.Invoke[*announce.Worker](injector)
		if err != nil {
			return fmt.Errorf("resolve announce worker: %w", err)
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				slog.Error("announce worker failed", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// watch streams stay open
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server exited")
	return nil
}

func newRouter(cfg *config.App, injector do.Injector) (*gin.Engine, error) {
	db, err := do.Invoke[*store.DB](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve database: %w", err)
	}
	var rdb *store.Redis
	if cfg.NeedsRedis() {
		if rdb, err = do.Invoke[*store.Redis](injector); err != nil {
			return nil, fmt.Errorf("resolve redis: %w", err)
		}
	}
	h, err := do.Invoke[*handler.Handler](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve handlers: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.ErrorLogger())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		ctx := c.Request.Context()
		body := gin.H{"db": db.Healthy(ctx)}
		ok := body["db"] == true
		if rdb != nil {
			up := rdb.Healthy(ctx)
			body["redis"] = up
			ok = ok && up
		}
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, body)
	})

	h.Routes(r)
	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        24 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cc.AllowAllOrigins = true
		return cc
	}
	cc.AllowOrigins = origins
	cc.AllowCredentials = true
	return cc
}
