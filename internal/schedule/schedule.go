// Package schedule drives the recurring outreach work: the batch decision
// run and periodic retention cleanup of engine-owned audit rows. Built on
// gocron so overlapping runs are rescheduled instead of stacked.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ess007/beathealth-outreach/internal/config"
	"github.com/ess007/beathealth-outreach/internal/outreach"
)

const (
	cleanupInterval = 24 * time.Hour
	auditRetention  = 90 * 24 * time.Hour
)

// Start launches the recurring jobs and returns the running scheduler. The
// caller is responsible for Shutdown on exit.
func Start(ctx context.Context, runner *outreach.Runner, pool *pgxpool.Pool, batchInterval time.Duration, logger *slog.Logger) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(batchInterval),
		gocron.NewTask(func() {
			result := runner.RunBatch(ctx)
			logger.Info("Scheduled batch finished",
				"processed", result.Processed,
				"contacted", result.Contacted,
				"skipped", result.Skipped,
				"errors", result.Errors)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("outreach-batch"),
	)
	if err != nil {
		return nil, fmt.Errorf("register batch job: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(cleanupInterval),
		gocron.NewTask(func() { cleanupAudit(ctx, pool, logger) }),
		gocron.WithName("audit-retention"),
	)
	if err != nil {
		return nil, fmt.Errorf("register cleanup job: %w", err)
	}

	s.Start()
	logger.Info("Schedule started",
		"batch_interval", batchInterval,
		"cleanup_interval", cleanupInterval)
	return s, nil
}

// cleanupAudit prunes engine-written audit rows past the retention window.
// Outreach log entries are user-facing records and are never pruned here.
func cleanupAudit(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	cutoff := time.Now().Add(-auditRetention)
	tag, err := pool.Exec(ctx, `
		DELETE FROM `+config.AuditLogTable+`
		WHERE action_type = 'proactive_outreach' AND created_at < $1`, cutoff)
	if err != nil {
		logger.Error("audit cleanup failed", "error", err)
		return
	}
	if tag.RowsAffected() > 0 {
		logger.Info("audit cleanup", "deleted", tag.RowsAffected())
	}
}
