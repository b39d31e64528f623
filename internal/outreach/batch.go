package outreach

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Runner drives the decision pipeline across users: batch mode over the
// active population, or single mode for one user on demand.
type Runner struct {
	loader   *Loader
	pipeline *Pipeline
	executor *Executor
	store    Store
	logger   *slog.Logger

	workers     int
	userTimeout time.Duration
}

// RunnerConfig bounds batch concurrency and per-user work.
type RunnerConfig struct {
	Workers     int           // worker pool size; min 1
	UserTimeout time.Duration // deadline for one user's load+decide+execute
}

// DefaultRunnerConfig returns production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{Workers: 4, UserTimeout: 15 * time.Second}
}

// NewRunner wires the loader, pipeline, and executor over one store.
func NewRunner(store Store, pipeline *Pipeline, executor *Executor, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.UserTimeout <= 0 {
		cfg.UserTimeout = DefaultRunnerConfig().UserTimeout
	}
	return &Runner{
		loader:      NewLoader(store),
		pipeline:    pipeline,
		executor:    executor,
		store:       store,
		logger:      logger,
		workers:     cfg.Workers,
		userTimeout: cfg.UserTimeout,
	}
}

// RunBatch processes every active user with per-user fault isolation. The
// population is snapshotted once at the start; a failure for one user is
// counted and the batch continues. No new per-user work starts after ctx
// is cancelled, but in-flight work is allowed to finish.
func (r *Runner) RunBatch(ctx context.Context) BatchResult {
	start := time.Now()
	var result BatchResult

	userIDs, err := r.store.ActiveUserIDs(ctx)
	if err != nil {
		r.logger.Error("active user snapshot failed", "error", err)
		result.Errors++
		result.Processed++
		result.Duration = time.Since(start)
		return result
	}
	if len(userIDs) == 0 {
		r.logger.Info("No active users to process")
		result.Duration = time.Since(start)
		return result
	}

	workers := r.workers
	if workers > len(userIDs) {
		workers = len(userIDs)
	}

	ch := make(chan string, len(userIDs))
	for _, id := range userIDs {
		ch <- id
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range ch {
				if ctx.Err() != nil {
					return
				}
				single, err := r.processUser(ctx, userID)

				mu.Lock()
				result.Processed++
				switch {
				case err != nil:
					result.Errors++
				case single.Contacted:
					result.Contacted++
				default:
					result.Skipped++
				}
				mu.Unlock()

				if err != nil {
					r.logger.Warn("user processing failed", "user_id", userID, "error", err)
				}
			}
		}()
	}

	wg.Wait()
	result.Duration = time.Since(start)

	r.logger.Info("Batch run complete",
		"processed", result.Processed,
		"contacted", result.Contacted,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"duration", result.Duration)
	return result
}

// RunSingle processes one user on demand and surfaces failures to the
// caller instead of swallowing them.
func (r *Runner) RunSingle(ctx context.Context, userID string) (*SingleResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id required")
	}
	return r.processUser(ctx, userID)
}

// processUser runs load → decide → execute for one user under the per-user
// deadline.
func (r *Runner) processUser(ctx context.Context, userID string) (*SingleResult, error) {
	uctx, cancel := context.WithTimeout(ctx, r.userTimeout)
	defer cancel()

	c, err := r.loader.Load(uctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load context: %w", err)
	}

	decision := r.pipeline.Decide(c)

	res, err := r.executor.Execute(uctx, userID, decision)
	if err != nil {
		return nil, fmt.Errorf("execute decision: %w", err)
	}

	return &SingleResult{
		UserID:     userID,
		Contacted:  decision.ShouldContact,
		Skipped:    !decision.ShouldContact,
		Reason:     decision.Reason,
		LogEntryID: res.LogEntryID,
	}, nil
}

// Preview loads context and evaluates the ladder without executing any
// side effects. Used by the ops dry-run endpoint and CLI.
func (r *Runner) Preview(ctx context.Context, userID string) (Decision, error) {
	uctx, cancel := context.WithTimeout(ctx, r.userTimeout)
	defer cancel()

	c, err := r.loader.Load(uctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("load context: %w", err)
	}
	return r.pipeline.Decide(c), nil
}
