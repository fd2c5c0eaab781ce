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
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/transformer/internal/config"
	"github.com/JonMunkholm/transformer/internal/core"
	"github.com/JonMunkholm/transformer/internal/database"
	"github.com/JonMunkholm/transformer/internal/logging"
	"github.com/JonMunkholm/transformer/internal/web"
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

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	audit, closeAudit, err := openAuditLog(ctx, cfg.Audit)
	if err != nil {
		slog.Error("failed to open audit log", "error", err)
		os.Exit(1)
	}
	defer closeAudit()

	limiter := core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	service := core.NewService(core.ServiceConfig{
		MaxFileSize:        cfg.Upload.MaxFileSize,
		MaxFilesPerSession: cfg.Upload.MaxFiles,
		SessionTTL:         cfg.Session.TTL,
	}, audit, limiter)

	server := web.NewServer(service, cfg)

	stop, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	go service.StartSessionSweeper(stop, cfg.Session.CleanupInterval)

	if err := serve(stop, server, limiter, cfg.Server.ShutdownTimeout); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

type httpServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serve runs srv until stop is done, then waits for in-flight uploads and
// shuts the server down. It returns once the shutdown has finished, not
// when Start does.
func serve(stop context.Context, srv httpServer, limiter *core.UploadLimiter, timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-stop.Done()

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}

// openAuditLog connects to Postgres when DATABASE_URL is set and falls back
// to the in-memory log otherwise.
func openAuditLog(ctx context.Context, cfg config.AuditConfig) (core.AuditLogger, func(), error) {
	if !cfg.Persistent() {
		slog.Info("audit log kept in memory", "capacity", cfg.MemoryCapacity)
		return core.NewMemoryAuditLog(cfg.MemoryCapacity), func() {}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	if u, err := url.Parse(cfg.DatabaseURL); err == nil {
		slog.Info("audit log stored in postgres", "database", strings.TrimPrefix(u.Path, "/"))
	}
	return core.NewAuditService(pool), pool.Close, nil
}
