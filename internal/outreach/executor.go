package outreach

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher delivers a nudge over an external channel. Delivery is
// best-effort: the executor logs failures and moves on.
type Publisher interface {
	Publish(ctx context.Context, userID, channel, message, category string) error
}

// ExecResult reports what the executor durably recorded.
type ExecResult struct {
	Success    bool
	LogEntryID string
}

// Executor records a positive decision: one outreach log entry, one outcome
// row for the learning loop, one audit record, then a best-effort send.
type Executor struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	clock     func() time.Time
	newID     func() string
}

// NewExecutor creates an Executor. publisher may be a nil-safe no-op.
func NewExecutor(store Store, publisher Publisher, logger *slog.Logger) *Executor {
	return &Executor{
		store:     store,
		publisher: publisher,
		logger:    logger,
		clock:     time.Now,
		newID:     uuid.NewString,
	}
}

// Execute applies a decision's side effects for one user. A negative
// decision is a successful no-op. The log-entry insert is the durability
// gate: if it fails, nothing else is written and Success is false. Outcome
// and audit inserts after it are logged on failure but do not revert the
// entry, and a delivery failure never flips Success — the decision was
// already durably recorded.
func (e *Executor) Execute(ctx context.Context, userID string, d Decision) (ExecResult, error) {
	if !d.ShouldContact {
		return ExecResult{Success: true}, nil
	}

	now := e.clock()
	entry := LogEntry{
		ID:        e.newID(),
		UserID:    userID,
		Text:      d.Message,
		Category:  d.Reason,
		Channel:   d.Channel,
		CreatedAt: now,
	}
	if err := e.store.InsertLogEntry(ctx, entry); err != nil {
		return ExecResult{Success: false}, fmt.Errorf("insert outreach log: %w", err)
	}

	if err := e.store.InsertOutcome(ctx, Outcome{
		UserID:        userID,
		InteractionID: entry.ID,
		DeliveredAt:   now,
		Context: map[string]any{
			"reason":   d.Reason,
			"priority": string(d.Priority),
			"channel":  string(d.Channel),
		},
	}); err != nil {
		e.logger.Warn("outcome insert failed", "user_id", userID, "entry_id", entry.ID, "error", err)
	}

	if err := e.store.InsertAudit(ctx, AuditRecord{
		UserID:     userID,
		ActionType: "proactive_outreach",
		ActionPayload: map[string]any{
			"log_entry_id": entry.ID,
			"reason":       d.Reason,
		},
		TriggerReason: d.Reason,
		TriggerType:   "scheduled",
		Status:        "completed",
	}); err != nil {
		e.logger.Warn("audit insert failed", "user_id", userID, "entry_id", entry.ID, "error", err)
	}

	if err := e.publisher.Publish(ctx, userID, string(d.Channel), d.Message, d.Reason); err != nil {
		e.logger.Warn("delivery failed", "user_id", userID, "channel", d.Channel, "error", err)
	}

	return ExecResult{Success: true, LogEntryID: entry.ID}, nil
}
