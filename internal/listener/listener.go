// Package listener provides a Postgres LISTEN/NOTIFY consumer for real-time
// alert handling. It holds a dedicated pgx connection (not from the pool)
// listening on the `health_alert_created` channel.
//
// When the monitoring pipeline inserts an unresolved alert, the Postgres
// trigger fires pg_notify and this consumer runs the outreach pipeline for
// that one user immediately instead of waiting for the next scheduled batch.
// The rule ladder still applies, so disabled nudges and the daily cap
// suppress the contact as usual.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ess007/beathealth-outreach/internal/outreach"
)

const (
	channel          = "health_alert_created"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// AlertEvent is the JSON payload from pg_notify('health_alert_created', ...).
type AlertEvent struct {
	UserID    string `json:"user_id"`
	Severity  string `json:"severity"`
	Timestamp int64  `json:"ts"`
}

// Start opens a dedicated connection and listens on the health_alert_created
// channel. It reconnects automatically on connection loss. Blocks until ctx
// is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, runner *outreach.Runner, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, runner, logger)
		if ctx.Err() != nil {
			logger.Info("Alert listener stopped (context cancelled)")
			return
		}

		logger.Error("Alert listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, runner *outreach.Runner, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Alert listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var event AlertEvent
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			logger.Warn("Failed to parse alert event",
				"payload", notification.Payload, "error", err)
			continue
		}
		if event.UserID == "" {
			continue
		}

		logger.Info("Alert event received",
			"user_id", event.UserID, "severity", event.Severity)

		// Process asynchronously to avoid blocking the listener
		go handleAlert(ctx, runner, event, logger)
	}
}

// handleAlert runs one single-user outreach pass for the alerted user.
func handleAlert(ctx context.Context, runner *outreach.Runner, event AlertEvent, logger *slog.Logger) {
	res, err := runner.RunSingle(ctx, event.UserID)
	if err != nil {
		logger.Warn("Alert-triggered run failed", "user_id", event.UserID, "error", err)
		return
	}
	logger.Info("Alert-triggered run complete",
		"user_id", event.UserID,
		"contacted", res.Contacted,
		"reason", res.Reason)
}
