// Package ingest owns the persist-then-process pipeline shared by every
// provider webhook handler: record the raw event before any side effect,
// dispatch hooks over the normalized envelopes, then mark the row
// processed and announce it downstream.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"reflex.app/assistant/common/id"
	"reflex.app/assistant/common/logger"
	"reflex.app/assistant/internal/hook"
	"reflex.app/assistant/internal/model"
	"reflex.app/assistant/internal/normalize"
	"reflex.app/assistant/internal/queue"
	"reflex.app/assistant/internal/store"
	"reflex.app/assistant/internal/telemetry"
)

type Service struct {
	events     store.WebhookEventStore
	dispatcher *hook.Dispatcher
	producer   queue.Producer
	tracker    telemetry.Tracker
}

func NewService(events store.WebhookEventStore, dispatcher *hook.Dispatcher, producer queue.Producer, tracker telemetry.Tracker) *Service {
	return &Service{
		events:     events,
		dispatcher: dispatcher,
		producer:   producer,
		tracker:    tracker,
	}
}

// Persist records the raw payload as an unprocessed event. It must succeed
// before any hook runs so a crash mid-processing leaves a replayable row.
func (s *Service) Persist(ctx context.Context, platform model.Platform, externalID, eventType, resourceType string, raw []byte) (*model.WebhookEvent, error) {
	event := &model.WebhookEvent{
		ID:             id.New(),
		SourcePlatform: platform,
		ExternalID:     optional(externalID),
		EventType:      optional(eventType),
		ResourceType:   optional(resourceType),
		RawPayload:     raw,
	}

	created, err := s.events.Create(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("persisting webhook event: %w", err)
	}

	s.tracker.TrackWebhookReceived(ctx, string(platform))
	return created, nil
}

// Process dispatches hooks for each normalized envelope, then marks the
// stored event processed. Ignored envelopes are acknowledged without
// dispatch. Handler failures are contained by the dispatcher; only
// persistence errors surface to the caller.
func (s *Service) Process(ctx context.Context, event *model.WebhookEvent, envelopes []normalize.Event) (int, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EventID:  logger.Ptr(event.ID),
		Platform: logger.Ptr(string(event.SourcePlatform)),
	})

	executed := 0
	eventType := ""
	for _, env := range envelopes {
		if env.Ignored {
			slog.InfoContext(ctx, "skipping ignored event", "reason", env.IgnoreReason)
			continue
		}
		if eventType == "" {
			eventType = env.EventType
		}

		result := s.dispatcher.Dispatch(ctx, hook.Context{
			UserID:    env.ActorID,
			Platform:  env.Platform,
			EventType: env.EventType,
			EventData: env.Payload,
			Timestamp: env.Timestamp,
			Metadata: map[string]any{
				"event_id":      event.ID,
				"resource_type": env.ResourceType,
				"resource_id":   env.ResourceID,
			},
		})
		executed += result.Executed
	}

	if err := s.events.MarkProcessed(ctx, event.ID); err != nil {
		return executed, fmt.Errorf("marking event processed: %w", err)
	}

	if err := s.producer.Publish(ctx, queue.ProcessedEvent{
		EventID:   event.ID,
		Platform:  event.SourcePlatform,
		EventType: eventType,
		HooksRun:  executed,
	}); err != nil {
		// Downstream announcement is best effort; the row is already durable.
		slog.WarnContext(ctx, "failed to publish processed event", "error", err)
	}

	return executed, nil
}

// Unprocessed exposes the replay building block: events persisted but not
// yet marked processed.
func (s *Service) Unprocessed(ctx context.Context, limit int32) ([]model.WebhookEvent, error) {
	return s.events.ListUnprocessed(ctx, limit)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
