package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"reflex.app/assistant/internal/model"
)

// ProcessedEvent is published after a webhook event has been dispatched,
// so downstream consumers (analytics, digests) can follow along without
// polling the database.
type ProcessedEvent struct {
	EventID   int64
	Platform  model.Platform
	EventType string
	HooksRun  int
}

type Producer interface {
	Publish(ctx context.Context, msg ProcessedEvent) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Publish(ctx context.Context, msg ProcessedEvent) error {
	fields := map[string]any{
		"event_id":   msg.EventID,
		"platform":   string(msg.Platform),
		"event_type": msg.EventType,
		"hooks_run":  msg.HooksRun,
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publish processed event: %w", err)
	}

	p.logger.InfoContext(ctx, "published processed event", "event_id", msg.EventID, "platform", msg.Platform, "event_type", msg.EventType, "hooks_run", msg.HooksRun)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

// noopProducer is used when Redis is not configured.
type noopProducer struct{}

func NewNoopProducer() Producer { return noopProducer{} }

func (noopProducer) Publish(context.Context, ProcessedEvent) error { return nil }
func (noopProducer) Close() error                                  { return nil }
