package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"chitieu/internal/auth"
	"chitieu/internal/backend"
	"chitieu/internal/cache"
	"chitieu/internal/cli"
	"chitieu/internal/dashboard"
	apphttp "chitieu/internal/http"
	"chitieu/internal/log"
	"chitieu/internal/realtime"
)

func main() {
	cfg, logger := cli.Bootstrap("chitieu")

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}

	snapshots := cache.NewLRUCache[dashboard.Snapshot](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(snapshots)
	caches.StartCleanup(time.Minute)

	dash := dashboard.NewService(result.Store, snapshots, logger)
	hub := realtime.NewHub(logger)

	// Listeners run after every successful mutation.
	result.Records.OnChange(dash.Invalidate)
	result.Records.OnChange(hub.NotifyChanged)

	if cfg.AuthDevHeader {
		logger.Warn("Development identity header enabled, do not use in production",
			"header", auth.DevOwnerHeader)
	}
	authenticator := auth.New(auth.Config{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		DevHeader: cfg.AuthDevHeader,
	}, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Records:            result.Records,
		Dashboard:          dash,
		Auth:               authenticator,
		Hub:                hub,
		Pinger:             result.Store,
		CacheStats:         snapshots.Stats,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		caches.Stop()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting chitieu server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
