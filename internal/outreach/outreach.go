// Package outreach decides, per user, whether an automated health nudge
// should be sent, which one, at what priority, and over which channel —
// then records that decision durably and emits a learning-feedback row.
//
// Pipeline: load context → rule ladder → execute (log, outcome, audit, send).
// A batch runner applies the pipeline across the active user population.
package outreach

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a record does not exist. Absence of
// preferences or an engagement model is not an error for the pipeline —
// defaults are substituted.
var ErrNotFound = errors.New("outreach: record not found")

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// Streak nudges fire once a streak is established and the last log is
	// old enough that the streak will lapse within hours.
	streakMinCount     = 3
	streakAtRiskHours  = 20
	inactivityDays     = 3
	motivationMinRate  = 50.0
	defaultOptimalHour = 9

	// Hours-since-log sentinel when the user has never logged.
	neverLoggedHours = 999
	// Days-since-activity sentinel when the user has no activity records.
	neverActiveDays = 999

	// Defaults substituted when no preferences record exists.
	defaultMaxNudgesPerDay = 5
	defaultQuietStart      = "22:00"
	defaultQuietEnd        = "07:00"

	// Trailing window for the daily nudge throttle.
	throttleWindow = 24 * time.Hour

	alertFetchLimit = 5
)

// Skip reasons (user-facing record categories for deliberate no-ops).
const (
	ReasonDisabled   = "Nudges disabled"
	ReasonDailyLimit = "Daily limit reached"
	ReasonQuietHours = "Quiet hours"
	ReasonNoAction   = "No action needed"
)

// Contact reasons (categories on the outreach log entry).
const (
	ReasonCriticalAlert = "critical_health_alert"
	ReasonStreakAtRisk  = "streak_at_risk"
	ReasonHealthWarning = "health_warning"
	ReasonInactivity    = "inactivity"
	ReasonMotivation    = "proactive_motivation"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Priority orders outreach urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Channel is the delivery surface for a nudge.
type Channel string

const (
	ChannelInApp    Channel = "in_app"
	ChannelPush     Channel = "push"
	ChannelWhatsApp Channel = "whatsapp"
)

// Severity classifies health alerts.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Preferences is the user-owned outreach configuration. Read-only here;
// mutated elsewhere via the settings UI.
type Preferences struct {
	AutoNudgeEnabled bool
	MaxNudgesPerDay  int
	QuietHoursStart  string // "HH:MM"
	QuietHoursEnd    string // "HH:MM"
}

// DefaultPreferences is substituted when no preferences record exists.
func DefaultPreferences() Preferences {
	return Preferences{
		AutoNudgeEnabled: true,
		MaxNudgesPerDay:  defaultMaxNudgesPerDay,
		QuietHoursStart:  defaultQuietStart,
		QuietHoursEnd:    defaultQuietEnd,
	}
}

// EngagementModel is the per-user summary produced by the external learning
// job. The engine only reads it.
type EngagementModel struct {
	PreferredHours []int // hour-of-day, best first; may be empty
	EngagementRate float64
}

// StreakState is the user's consecutive-day logging streak.
type StreakState struct {
	Count        int
	LastLoggedAt *time.Time
}

// HoursSinceLog returns hours elapsed since the last log, or a large
// sentinel when the user has never logged.
func (s StreakState) HoursSinceLog(now time.Time) float64 {
	if s.LastLoggedAt == nil {
		return neverLoggedHours
	}
	return now.Sub(*s.LastLoggedAt).Hours()
}

// Alert is an unresolved health alert raised by the monitoring pipeline.
type Alert struct {
	Severity  Severity
	Resolved  bool
	CreatedAt time.Time
}

// Context is everything the decision pipeline needs about one user.
type Context struct {
	UserID         string
	UserName       string
	Prefs          Preferences
	Model          EngagementModel
	Streak         StreakState
	Alerts         []Alert
	RecentOutreach int // log entries in the trailing 24h
	LastActivityAt *time.Time
}

// Decision is the pipeline's output for one user. Ephemeral — only the
// executor's side effects are durable.
type Decision struct {
	ShouldContact bool     `json:"should_contact"`
	Reason        string   `json:"reason"`
	Priority      Priority `json:"priority,omitempty"`
	Channel       Channel  `json:"channel,omitempty"`
	Message       string   `json:"message,omitempty"`
	OptimalHour   *int     `json:"optimal_hour,omitempty"`
}

// LogEntry is one immutable outreach record. The trailing-24h count of these
// rows is the throttle source; it is also shown to the user.
type LogEntry struct {
	ID        string
	UserID    string
	Text      string
	Category  string
	Channel   Channel
	CreatedAt time.Time
}

// Outcome links a delivered nudge to later engagement. The engine creates
// the row with DeliveredAt set; a separate collaborator fills in engagement.
type Outcome struct {
	UserID        string
	InteractionID string // LogEntry.ID
	DeliveredAt   time.Time
	Context       map[string]any
}

// AuditRecord describes one completed outreach action for the audit trail.
type AuditRecord struct {
	UserID        string
	ActionType    string
	ActionPayload map[string]any
	TriggerReason string
	TriggerType   string
	Status        string
}

// BatchResult aggregates one batch run. Processed = Contacted + Skipped + Errors.
type BatchResult struct {
	Processed int           `json:"processed"`
	Contacted int           `json:"contacted"`
	Skipped   int           `json:"skipped"`
	Errors    int           `json:"errors"`
	Duration  time.Duration `json:"-"`
}

// SingleResult is the outcome of an on-demand single-user run.
type SingleResult struct {
	UserID     string `json:"user_id"`
	Contacted  bool   `json:"contacted"`
	Skipped    bool   `json:"skipped"`
	Reason     string `json:"reason,omitempty"`
	LogEntryID string `json:"log_entry_id,omitempty"`
}
