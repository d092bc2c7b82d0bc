package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/creatorlens/creatorlens/internal/cache"
	"github.com/creatorlens/creatorlens/internal/db"
	"github.com/creatorlens/creatorlens/internal/engine"
	"github.com/creatorlens/creatorlens/internal/providers"
	"github.com/creatorlens/creatorlens/pkg/config"
	"github.com/creatorlens/creatorlens/pkg/logging"
	"github.com/creatorlens/creatorlens/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting CreatorLens Refresher")

	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	store := db.NewStore(database)
	eng := engine.New(store)
	registry := providers.NewRegistry(&cfg.Providers)
	refresher := engine.NewRefresher(store, registry, &cfg.Providers, eng)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down refresher...")
		cancel()
	}()

	runLoop(ctx, refresher, cfg.Refresh.Interval, logger)
	logger.Info("Refresher exited")
}

// runLoop runs refresh passes until the context is cancelled, pausing
// the configured interval between passes.
func runLoop(ctx context.Context, refresher *engine.Refresher, interval time.Duration, logger *zap.Logger) {
	for {
		report, err := refresher.RefreshTrackedAccounts(ctx, engine.RunOptions{})
		if err != nil {
			logger.Error("Refresh run failed", zap.Error(err))
		} else {
			logger.Info("Refresh run finished",
				zap.Int("total", report.Total),
				zap.Time("completed_at", report.CompletedAt))
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
