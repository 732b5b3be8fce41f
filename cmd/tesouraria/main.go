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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tesouraria/internal/amqp"
	"tesouraria/internal/auth"
	"tesouraria/internal/config"
	apphttp "tesouraria/internal/http"
	"tesouraria/internal/ledger"
	"tesouraria/internal/members"
	"tesouraria/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	// AMQP is optional for single-instance deployments. Without it the
	// live feed still works in-process; only cross-instance refresh and
	// the report worker need the bus.
	var bus *amqp.Client
	if cfg.AMQPURL != "" {
		bus, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			repo.Close()
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		logger.Info("AMQP change events enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	dir := members.NewSQLiteDirectory(repo)
	names := members.NewCachedNames(dir, cfg.MemberCacheSize, cfg.MemberCacheTTL)
	svc := ledger.NewService(repo, names, bus)
	defer svc.Close()

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)

	srv := apphttp.NewServer(":"+cfg.Port, svc, dir, tokens)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 0 // the feed endpoint streams indefinitely
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting tesouraria server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if bus != nil {
		g.Go(func() error {
			// Exclusive queue per instance so every server sees every
			// change and can refresh its own subscribers.
			return bus.ConsumeTransactionChanged(ctx, "", func(msg *amqp.TransactionChanged) error {
				return svc.HandleRemoteChange(ctx, msg)
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
