package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/statspub/internal/config"
	"github.com/JonMunkholm/statspub/internal/core"
	"github.com/JonMunkholm/statspub/internal/database"
	"github.com/JonMunkholm/statspub/internal/logging"
	"github.com/JonMunkholm/statspub/internal/memstore"
	"github.com/JonMunkholm/statspub/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"deletion_max_concurrent", cfg.Deletion.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"audit_purge_enabled", cfg.Audit.PurgeEnabled,
	)

	ctx := context.Background()

	var store core.Store
	switch cfg.Store.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		store = memstore.New()
	default:
		pool, err := connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(pool); err != nil {
				logger.Error("failed to run migrations", "error", err)
				os.Exit(1)
			}
			logger.Info("migrations applied")
		}
		store = database.NewStore(pool)
	}

	service, err := core.NewService(store, core.Options{
		MaxConcurrentDeletions: cfg.Deletion.MaxConcurrent,
		DeletionMaxWait:        cfg.Deletion.MaxWaitTime,
		DeletionTimeout:        cfg.Deletion.Timeout,
		Logger:                 logger,
	})
	if err != nil {
		logger.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	var purger *core.AuditPurgeScheduler
	if cfg.Audit.PurgeEnabled {
		purger = core.NewAuditPurgeScheduler(service, core.PurgeConfig{
			RetentionDays: cfg.Audit.RetentionDays,
			Schedule:      cfg.Audit.PurgeSchedule,
		}, logger)
		if err := purger.Start(ctx); err != nil {
			logger.Error("failed to start audit purge scheduler", "error", err)
			os.Exit(1)
		}
	}

	server := web.NewServer(service, *cfg, logger)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")

		if purger != nil {
			purger.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests, then let running deletions finish.
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		if status := service.Limiter().Status(); status.Active > 0 {
			logger.Info("waiting for deletions to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				logger.Warn("deletions did not complete in time", "error", err)
			}
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	logger.Info("server stopped")
}

// connect opens a pool configured from cfg and verifies it with a ping.
func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
