package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mahanteshimath/duckdb-snowflake/internal/api"
	"github.com/mahanteshimath/duckdb-snowflake/internal/api/uistatic"
	"github.com/mahanteshimath/duckdb-snowflake/internal/auth"
	"github.com/mahanteshimath/duckdb-snowflake/internal/config"
	"github.com/mahanteshimath/duckdb-snowflake/internal/observability"
	"github.com/mahanteshimath/duckdb-snowflake/internal/session"
	s3store "github.com/mahanteshimath/duckdb-snowflake/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("sfexplorer")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	sessions := session.NewRegistry(cfg.Session.IdleTTL, cfg.Explorer.ExtensionSource)
	defer sessions.Close()

	deps := api.Dependencies{
		Logger:            logger,
		Sessions:          sessions,
		UI:                uistatic.Handler(),
		Readiness:         api.CheckObjectStoreConfig(cfg),
		DependencyTimeout: time.Second,
	}

	if cfg.ObjectStore.Enabled {
		sink, err := s3store.New(s3store.Config{
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			Bucket:          cfg.ObjectStore.Bucket,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			UseSSL:          cfg.ObjectStore.UseSSL,
			Prefix:          cfg.ObjectStore.Prefix,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		deps.ExportSink = sink
	}

	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting explorer server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("explorer server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down explorer server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
