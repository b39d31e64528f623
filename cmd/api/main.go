// Command api is the BeatHealth outreach engine service.
//
// Usage:
//
//	outreach-api
//	API_PORT=8080 outreach-api

// @title BeatHealth Outreach API
// @version 1.0.0
// @description Proactive outreach decision engine: per-user nudge decisions, batch runs, and a dry-run preview surface for ops.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name BeatHealth
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/ess007/beathealth-outreach/internal/api"
	"github.com/ess007/beathealth-outreach/internal/config"
	"github.com/ess007/beathealth-outreach/internal/db"
	"github.com/ess007/beathealth-outreach/internal/delivery"
	"github.com/ess007/beathealth-outreach/internal/listener"
	"github.com/ess007/beathealth-outreach/internal/outreach"
	"github.com/ess007/beathealth-outreach/internal/schedule"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Delivery channel (nil publisher = sends logged only)
	publisher, err := delivery.New(cfg.RedisURL, cfg.DeliveryStream, logger)
	if err != nil {
		logger.Error("Failed to connect to delivery stream", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()
	if publisher != nil {
		logger.Info("Delivery publisher connected", "stream", cfg.DeliveryStream)
	} else {
		logger.Info("Delivery publisher disabled (no REDIS_URL)")
	}

	// Wire the decision engine
	store := outreach.NewPGStore(pool.Pool)
	runner := outreach.NewRunner(
		store,
		outreach.NewPipeline(),
		outreach.NewExecutor(store, publisher, logger),
		outreach.RunnerConfig{Workers: cfg.BatchWorkers, UserTimeout: cfg.PerUserTimeout},
		logger,
	)

	// Recurring batch + retention schedule
	if cfg.ScheduleEnabled {
		sched, err := schedule.Start(ctx, runner, pool.Pool, cfg.BatchInterval, logger)
		if err != nil {
			logger.Error("Failed to start schedule", "error", err)
			os.Exit(1)
		}
		defer func() { _ = sched.Shutdown() }()
	} else {
		logger.Info("Recurring schedule disabled")
	}

	// LISTEN/NOTIFY fast path for newly raised alerts
	if cfg.AlertListenerEnabled {
		go listener.Start(ctx, cfg.DatabaseURL, runner, logger)
	}

	// Create router
	router := api.NewRouter(pool, runner, publisher, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // batch runs respond synchronously
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting BeatHealth Outreach API",
			"addr", addr,
			"environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
