// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ess007/beathealth-outreach/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// preparedStatements lists every read path the outreach engine uses, keyed
// by statement name. Table names come from the config constants so the SQL
// tracks schema.sql.
func preparedStatements() map[string]string {
	return map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Context loading
		"outreach_preferences":  "SELECT auto_nudge_enabled, max_nudges_per_day, quiet_hours_start, quiet_hours_end FROM " + config.PreferencesTable + " WHERE user_id = $1",
		"engagement_model":      "SELECT preferred_hours, engagement_rate FROM " + config.EngagementTable + " WHERE user_id = $1",
		"streak_state":          "SELECT count, last_logged_at FROM " + config.StreaksTable + " WHERE user_id = $1 AND type = 'main'",
		"active_alerts":         "SELECT severity, resolved, created_at FROM " + config.AlertsTable + " WHERE user_id = $1 AND resolved = false ORDER BY created_at DESC LIMIT $2",
		"recent_outreach_count": "SELECT COUNT(*) FROM " + config.OutreachLogTable + " WHERE user_id = $1 AND created_at >= $2",
		"last_activity_at":      "SELECT MAX(recorded_at) FROM " + config.ActivityLogTable + " WHERE user_id = $1",
		"user_display_name":     "SELECT display_name FROM " + config.UsersTable + " WHERE id = $1",

		// Batch enumeration
		"active_user_ids": "SELECT id FROM " + config.UsersTable + " WHERE onboarding_complete = true",
	}
}

// registerPreparedStatements runs on every new connection. Prepared
// statements eliminate parse overhead on every batch run.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range preparedStatements() {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
