// Command outreach is the BeatHealth outreach CLI for on-demand runs.
//
// Usage:
//
//	outreach batch --workers 4
//	outreach single --user 7f3a...
//	outreach preview --user 7f3a...
//	outreach token --subject ops-cli --ttl 60
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ess007/beathealth-outreach/internal/api"
	"github.com/ess007/beathealth-outreach/internal/config"
	"github.com/ess007/beathealth-outreach/internal/db"
	"github.com/ess007/beathealth-outreach/internal/delivery"
	"github.com/ess007/beathealth-outreach/internal/outreach"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "outreach",
		Short: "BeatHealth outreach engine CLI",
	}

	root.AddCommand(batchCmd())
	root.AddCommand(singleCmd())
	root.AddCommand(previewCmd())
	root.AddCommand(tokenCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// batch command
// --------------------------------------------------------------------------

func batchCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run the decision pipeline over the active user population",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(ctx context.Context, runner *outreach.Runner) error {
				start := time.Now()
				result := runner.RunBatch(ctx)
				logger.Info("Batch finished",
					"processed", result.Processed,
					"contacted", result.Contacted,
					"skipped", result.Skipped,
					"errors", result.Errors,
					"duration", time.Since(start).Round(time.Millisecond))
				return nil
			}, workers)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent worker count")
	return cmd
}

// --------------------------------------------------------------------------
// single command
// --------------------------------------------------------------------------

func singleCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "single",
		Short: "Run the decision pipeline for one user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return withRunner(func(ctx context.Context, runner *outreach.Runner) error {
				result, err := runner.RunSingle(ctx, userID)
				if err != nil {
					return err
				}
				logger.Info("Single run finished",
					"user_id", result.UserID,
					"contacted", result.Contacted,
					"reason", result.Reason,
					"log_entry_id", result.LogEntryID)
				return nil
			}, 1)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID to process")
	return cmd
}

// --------------------------------------------------------------------------
// preview command
// --------------------------------------------------------------------------

func previewCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the decision for one user without executing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return withRunner(func(ctx context.Context, runner *outreach.Runner) error {
				decision, err := runner.Preview(ctx, userID)
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(decision, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}, 1)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID to preview")
	return cmd
}

// --------------------------------------------------------------------------
// token command
// --------------------------------------------------------------------------

func tokenCmd() *cobra.Command {
	var subject string
	var ttlMinutes int
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a service credential for the trigger endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			token, err := api.MintServiceToken(cfg.AuthSecret, cfg.AuthIssuer, subject,
				time.Duration(ttlMinutes)*time.Minute)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "ops-cli", "Token subject (calling service name)")
	cmd.Flags().IntVar(&ttlMinutes, "ttl", 60, "Token lifetime in minutes")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withRunner handles config loading, DB and delivery connections, and
// context cancellation.
func withRunner(fn func(ctx context.Context, runner *outreach.Runner) error, workers int) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	publisher, err := delivery.New(cfg.RedisURL, cfg.DeliveryStream, logger)
	if err != nil {
		return fmt.Errorf("connect to delivery stream: %w", err)
	}
	defer publisher.Close()

	store := outreach.NewPGStore(pool.Pool)
	runner := outreach.NewRunner(
		store,
		outreach.NewPipeline(),
		outreach.NewExecutor(store, publisher, logger),
		outreach.RunnerConfig{Workers: workers, UserTimeout: cfg.PerUserTimeout},
		logger,
	)

	return fn(ctx, runner)
}
