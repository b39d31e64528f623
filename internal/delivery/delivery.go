// Package delivery publishes nudges onto a Redis stream consumed by the
// downstream transport workers (push, WhatsApp, in-app inbox). The engine
// treats delivery as fire-and-forget: the decision is already durably
// recorded before a send is attempted.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	streamMaxLen   = 10_000
	publishTimeout = 3 * time.Second
)

// Publisher sends nudges to the delivery stream.
// Nil-safe: when Redis is not configured, all methods are no-ops.
type Publisher struct {
	rdb    *redis.Client
	stream string
	logger *slog.Logger
}

// New creates a Publisher from a Redis URL. Returns nil if redisURL is
// empty (delivery disabled, sends are logged only).
func New(redisURL, stream string, logger *slog.Logger) (*Publisher, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return &Publisher{
		rdb:    redis.NewClient(opts),
		stream: stream,
		logger: logger,
	}, nil
}

// Publish appends one nudge to the delivery stream.
func (p *Publisher) Publish(ctx context.Context, userID, channel, message, category string) error {
	if p == nil {
		return nil // no-op when not configured
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := p.rdb.XAdd(pctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"user_id":  userID,
			"channel":  channel,
			"message":  message,
			"category": category,
			"sent_at":  time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}

	p.logger.Debug("nudge published", "user_id", userID, "channel", channel, "category", category)
	return nil
}

// Ping verifies the Redis connection for health checks.
func (p *Publisher) Ping(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.rdb.Close()
}
