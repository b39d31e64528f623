package outreach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ess007/beathealth-outreach/internal/config"
)

// PGStore is the Postgres-backed Store. Read queries go through prepared
// statements registered in internal/db; inserts use inline SQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps a connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Preferences(ctx context.Context, userID string) (Preferences, error) {
	var p Preferences
	err := s.pool.QueryRow(ctx, "outreach_preferences", userID).Scan(
		&p.AutoNudgeEnabled, &p.MaxNudgesPerDay, &p.QuietHoursStart, &p.QuietHoursEnd,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Preferences{}, ErrNotFound
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("query preferences: %w", err)
	}
	return p, nil
}

func (s *PGStore) EngagementModel(ctx context.Context, userID string) (EngagementModel, error) {
	var m EngagementModel
	var hours []int32
	err := s.pool.QueryRow(ctx, "engagement_model", userID).Scan(&hours, &m.EngagementRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return EngagementModel{}, ErrNotFound
	}
	if err != nil {
		return EngagementModel{}, fmt.Errorf("query engagement model: %w", err)
	}
	m.PreferredHours = make([]int, 0, len(hours))
	for _, h := range hours {
		m.PreferredHours = append(m.PreferredHours, int(h))
	}
	return m, nil
}

func (s *PGStore) Streak(ctx context.Context, userID string) (StreakState, error) {
	var st StreakState
	err := s.pool.QueryRow(ctx, "streak_state", userID).Scan(&st.Count, &st.LastLoggedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StreakState{}, ErrNotFound
	}
	if err != nil {
		return StreakState{}, fmt.Errorf("query streak: %w", err)
	}
	return st, nil
}

func (s *PGStore) ActiveAlerts(ctx context.Context, userID string) ([]Alert, error) {
	rows, err := s.pool.Query(ctx, "active_alerts", userID, alertFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.Severity, &a.Resolved, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *PGStore) RecentOutreachCount(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "recent_outreach_count", userID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recent outreach: %w", err)
	}
	return n, nil
}

func (s *PGStore) LastActivityAt(ctx context.Context, userID string) (*time.Time, error) {
	var last *time.Time
	if err := s.pool.QueryRow(ctx, "last_activity_at", userID).Scan(&last); err != nil {
		return nil, fmt.Errorf("query last activity: %w", err)
	}
	return last, nil
}

func (s *PGStore) UserName(ctx context.Context, userID string) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx, "user_display_name", userID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query user name: %w", err)
	}
	return name, nil
}

func (s *PGStore) ActiveUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "active_user_ids")
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PGStore) InsertLogEntry(ctx context.Context, e LogEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.OutreachLogTable+` (id, user_id, text, category, delivered_via, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.UserID, e.Text, e.Category, string(e.Channel), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outreach log: %w", err)
	}
	return nil
}

func (s *PGStore) InsertOutcome(ctx context.Context, o Outcome) error {
	payload, err := json.Marshal(o.Context)
	if err != nil {
		return fmt.Errorf("marshal outcome context: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO `+config.OutcomesTable+` (user_id, interaction_type, interaction_id, delivered_at, context)
		VALUES ($1, 'nudge', $2, $3, $4)`,
		o.UserID, o.InteractionID, o.DeliveredAt, payload,
	)
	if err != nil {
		return fmt.Errorf("insert interaction outcome: %w", err)
	}
	return nil
}

func (s *PGStore) InsertAudit(ctx context.Context, a AuditRecord) error {
	payload, err := json.Marshal(a.ActionPayload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO `+config.AuditLogTable+` (user_id, action_type, action_payload, trigger_reason, trigger_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		a.UserID, a.ActionType, payload, a.TriggerReason, a.TriggerType, a.Status,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}
