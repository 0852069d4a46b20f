/**
 * @description
 * Entry point for the penalty service. It serves the manual trigger endpoint and, when a
 * schedule is configured, runs the daily penalty job in-process.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/deedtrack/penalty-service/internal/api"
	"github.com/deedtrack/penalty-service/internal/app"
	"github.com/deedtrack/penalty-service/internal/config"
	"github.com/deedtrack/penalty-service/internal/store"
	"github.com/deedtrack/penalty-service/pkg/rabbitmq"
	"github.com/deedtrack/penalty-service/pkg/runlock"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	pgConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	pgConfig.MaxConns = int32(cfg.MaxConcurrency) + 4
	pgConfig.MinConns = 2
	pgConfig.MaxConnLifetime = 30 * time.Minute
	pgConfig.MaxConnIdleTime = 5 * time.Minute
	pgConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	repository := store.NewRepository(dbpool)

	var publisher app.EventPublisher = &rabbitmq.EventProducerFallback{Logger: logger}
	if cfg.RabbitMQURL != "" {
		if producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err == nil {
			publisher = producer
			defer producer.Close()
		} else {
			logger.Warn("failed to connect to RabbitMQ, using fallback publisher", "error", err)
		}
	}

	var lock app.RunLock
	if cfg.RedisURL != "" {
		client, err := runlock.NewClient(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, runs will retry the lock on each trigger", "error", err)
		}
		lock = runlock.NewRedisLock(client, cfg.RedisLockPrefix, cfg.RunLockTTL())
	} else {
		logger.Info("REDIS_URL not set, overlapping runs are not guarded")
	}

	service := app.NewService(repository, publisher, lock, logger, app.Options{
		Thresholds:      cfg.Thresholds(),
		MembershipTiers: cfg.MembershipTiers(),
		MaxConcurrency:  cfg.MaxConcurrency,
		EventExchange:   cfg.NotificationExchange,
	})

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("failed to load business timezone", "error", err)
		os.Exit(1)
	}
	scheduler := app.NewScheduler(service, logger, cfg.PenaltyJobSchedule, loc, cfg.RunTimeout())
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(service, cfg.TimezoneLabel, cfg.RunTimeout(), logger)
	router := api.NewRouter(handler, api.AuthConfig{
		InternalAPIKey: cfg.InternalAPIKey,
		JWTSecret:      cfg.ServiceRoleJWTSecret,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	stopCtx := scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	select {
	case <-stopCtx.Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduled run still in progress at shutdown")
	}

	logger.Info("server stopped")
}
