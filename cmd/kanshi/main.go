package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mizuho-ai/kanshi/internal/analytics"
	"github.com/mizuho-ai/kanshi/internal/cache"
	"github.com/mizuho-ai/kanshi/internal/config"
	"github.com/mizuho-ai/kanshi/internal/ratelimit"
	"github.com/mizuho-ai/kanshi/internal/server"
	"github.com/mizuho-ai/kanshi/internal/service/dashboard"
	"github.com/mizuho-ai/kanshi/internal/storage"
	"github.com/mizuho-ai/kanshi/internal/telemetry"
	"github.com/mizuho-ai/kanshi/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("KANSHI_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("kanshi starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to Postgres when configured; otherwise run in demo mode and
	// serve synthetic data only.
	var store dashboard.Store
	if cfg.DatabaseURL != "" {
		db, err := storage.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		defer db.Close()

		if err := db.RunMigrations(ctx, migrations.FS); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		store = db
		logger.Info("storage: connected")
	} else {
		logger.Info("storage: disabled (no KANSHI_DATABASE_URL), serving synthetic data")
	}

	// Response cache is optional too.
	var cacher dashboard.Cacher
	if cfg.RedisURL != "" {
		c, err := cache.New(ctx, cfg.RedisURL, cfg.DashboardCacheTTL)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		defer func() { _ = c.Close() }()
		cacher = c
		logger.Info("cache: enabled", "ttl", cfg.DashboardCacheTTL)
	} else {
		logger.Info("cache: disabled (no KANSHI_REDIS_URL)")
	}

	svc := dashboard.New(dashboard.Config{
		Store:     store,
		Generator: analytics.NewGenerator(),
		Cache:     cacher,
		Logger:    logger,
	})

	limiter := ratelimit.NewMemoryLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	defer func() { _ = limiter.Close() }()

	srv := server.New(server.Config{
		Service:            svc,
		Limiter:            limiter,
		Logger:             logger,
		Port:               cfg.Port,
		ReadTimeout:        cfg.ReadTimeout,
		WriteTimeout:       cfg.WriteTimeout,
		Version:            version,
		IngestKeyHash:      cfg.IngestKeyHash,
		DefaultWindowHours: cfg.DefaultWindowHours,
		MaxWindowHours:     cfg.MaxWindowHours,
	})

	return srv.Run(ctx)
}
