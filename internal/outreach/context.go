package outreach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Store is the read/write contract the engine needs from the surrounding
// system. The pgx implementation lives in store.go; tests use fakes.
type Store interface {
	// Reads consumed by the Loader.
	Preferences(ctx context.Context, userID string) (Preferences, error)
	EngagementModel(ctx context.Context, userID string) (EngagementModel, error)
	Streak(ctx context.Context, userID string) (StreakState, error)
	ActiveAlerts(ctx context.Context, userID string) ([]Alert, error)
	RecentOutreachCount(ctx context.Context, userID string, since time.Time) (int, error)
	LastActivityAt(ctx context.Context, userID string) (*time.Time, error)
	UserName(ctx context.Context, userID string) (string, error)
	ActiveUserIDs(ctx context.Context) ([]string, error)

	// Writes produced by the Executor.
	InsertLogEntry(ctx context.Context, e LogEntry) error
	InsertOutcome(ctx context.Context, o Outcome) error
	InsertAudit(ctx context.Context, a AuditRecord) error
}

// Loader assembles the per-user Context. The independent fetches run
// concurrently; a missing preferences/model/streak/name record is replaced
// with defaults, while any hard failure aborts the load for this user only.
type Loader struct {
	store Store
	clock func() time.Time
}

// NewLoader creates a Loader over the given store.
func NewLoader(store Store) *Loader {
	return &Loader{store: store, clock: time.Now}
}

// Load fetches everything the pipeline needs for one user.
func (l *Loader) Load(ctx context.Context, userID string) (*Context, error) {
	c := &Context{UserID: userID}
	since := l.clock().Add(-throttleWindow)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		prefs, err := l.store.Preferences(gctx, userID)
		if errors.Is(err, ErrNotFound) {
			c.Prefs = DefaultPreferences()
			return nil
		}
		if err != nil {
			return fmt.Errorf("load preferences: %w", err)
		}
		c.Prefs = prefs
		return nil
	})

	g.Go(func() error {
		model, err := l.store.EngagementModel(gctx, userID)
		if errors.Is(err, ErrNotFound) {
			return nil // zero model: no preferred hours, 0 rate
		}
		if err != nil {
			return fmt.Errorf("load engagement model: %w", err)
		}
		c.Model = model
		return nil
	})

	g.Go(func() error {
		streak, err := l.store.Streak(gctx, userID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load streak: %w", err)
		}
		c.Streak = streak
		return nil
	})

	g.Go(func() error {
		alerts, err := l.store.ActiveAlerts(gctx, userID)
		if err != nil {
			return fmt.Errorf("load alerts: %w", err)
		}
		c.Alerts = alerts
		return nil
	})

	g.Go(func() error {
		n, err := l.store.RecentOutreachCount(gctx, userID, since)
		if err != nil {
			return fmt.Errorf("count recent outreach: %w", err)
		}
		c.RecentOutreach = n
		return nil
	})

	g.Go(func() error {
		last, err := l.store.LastActivityAt(gctx, userID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("load last activity: %w", err)
		}
		c.LastActivityAt = last
		return nil
	})

	g.Go(func() error {
		name, err := l.store.UserName(gctx, userID)
		if errors.Is(err, ErrNotFound) {
			c.UserName = "there" // greeting fallback
			return nil
		}
		if err != nil {
			return fmt.Errorf("load user name: %w", err)
		}
		c.UserName = name
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}
