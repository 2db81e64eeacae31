// watcher keeps a live feed subscription for every configured tournament,
// invalidates the shared cache on each event, and optionally journals events
// to PostgreSQL.
// Usage: go run ./cmd/watcher --config configs/watcher.example.yaml
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/torvi-live/internal/cache"
	"github.com/rickgao/torvi-live/internal/config"
	"github.com/rickgao/torvi-live/internal/connection"
	"github.com/rickgao/torvi-live/internal/database"
	"github.com/rickgao/torvi-live/internal/metrics"
	"github.com/rickgao/torvi-live/internal/model"
	"github.com/rickgao/torvi-live/internal/router"
	"github.com/rickgao/torvi-live/internal/subscription"
	"github.com/rickgao/torvi-live/internal/version"
	"github.com/rickgao/torvi-live/internal/watch"
	"github.com/rickgao/torvi-live/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/watcher.example.yaml", "path to config file")
	releaseCompleted := flag.Bool("release-completed", false, "stop watching tournaments once they complete")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}
	logger := setupLogger()

	logger.Info("starting watcher",
		"version", version.String(),
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"ws_url", cfg.Feed.WSURL,
		"tournaments", len(cfg.Feed.Tournaments),
		"cache_backend", cfg.Cache.Backend,
		"journal", cfg.Journal.Enabled,
	)
	if len(cfg.Feed.Tournaments) == 0 {
		logger.Warn("no tournaments configured, serving status only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cache
	inv, closeCache, err := buildCache(ctx, cfg.Cache, logger)
	if err != nil {
		logger.Error("failed to set up cache", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	// Router, and the journal behind it when enabled
	rtrCfg := router.DefaultRouterConfig()
	rtrCfg.Journal = cfg.Journal.Enabled
	rtrCfg.JournalBufferSize = cfg.Journal.BufferSize
	rtr := router.NewRouter(rtrCfg, logger)

	var journal *writer.JournalWriter
	if cfg.Journal.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := writer.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to prepare journal table", "error", err)
			os.Exit(1)
		}

		journal = writer.NewJournalWriter(writer.WriterConfig{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			MaxRetries:    writer.DefaultWriterConfig().MaxRetries,
		}, rtr.Journal(), pool, logger)
		if err := journal.Start(ctx); err != nil {
			logger.Error("failed to start journal writer", "error", err)
			os.Exit(1)
		}
	}

	// Feed bindings
	pool := watch.NewPool(watch.Config{
		Token:            cfg.Feed.Token,
		ReleaseCompleted: *releaseCompleted,
		OnEvent: func(id string, ev model.Event) {
			rtr.Route(id, ev, time.Now())
		},
	}, inv, logger, subscription.WithManagerConfig(managerConfig(cfg)))
	pool.Sync(cfg.Feed.Tournaments)

	// Status API
	opts := []metrics.Option{metrics.WithEventStats(rtr)}
	if journal != nil {
		opts = append(opts, metrics.WithJournalStats(journal))
	}
	srv := metrics.NewServer(cfg.HTTP.Port, metrics.NewRouter(pool, opts...), logger)
	srv.Start()

	logger.Info("watcher running", "instance_id", cfg.Instance.ID, "http_port", cfg.HTTP.Port)

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("status server shutdown", "error", err)
	}
	if err := pool.Close(shutdownCtx); err != nil {
		logger.Warn("watch pool shutdown", "error", err)
	}
	rtr.Stop()
	if journal != nil {
		if err := journal.Stop(shutdownCtx); err != nil {
			logger.Warn("journal writer shutdown", "error", err)
		}
	}

	logger.Info("watcher stopped")
}

// setupLogger installs a text logger whose level comes from LOG_LEVEL.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// managerConfig maps the connections section onto connection.ManagerConfig.
func managerConfig(cfg *config.WatcherConfig) connection.ManagerConfig {
	return connection.ManagerConfig{
		BaseURL:           cfg.Feed.WSURL,
		HeartbeatInterval: cfg.Connections.HeartbeatInterval,
		ReconnectBaseWait: cfg.Connections.ReconnectBaseDelay,
		ReconnectMaxWait:  cfg.Connections.ReconnectMaxDelay,
		PingTimeout:       cfg.Connections.PingTimeout,
		HandshakeTimeout:  cfg.Connections.HandshakeTimeout,
		WriteTimeout:      cfg.Connections.WriteTimeout,
		BufferSize:        cfg.Connections.BufferSize,
	}
}

// buildCache returns the configured invalidator and its cleanup.
func buildCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (subscription.Invalidator, func(), error) {
	if cfg.Backend != "redis" {
		mem := cache.NewMemory(cfg.KeyPrefix)
		return mem, func() {}, nil
	}

	rc := cache.NewRedis(cache.RedisConfig{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		Channel:   cfg.Redis.Channel,
		KeyPrefix: cfg.KeyPrefix,
		TTL:       cfg.TTL,
	}, logger)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		rc.Close()
		return nil, nil, err
	}

	logger.Info("redis cache connected", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	return rc, func() { rc.Close() }, nil
}
