package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"reflex.app/assistant/core/db"
	"reflex.app/assistant/internal/model"
)

type webhookEventStore struct {
	q db.Querier
}

func newWebhookEventStore(q db.Querier) WebhookEventStore {
	return &webhookEventStore{q: q}
}

const webhookEventColumns = `id, source_platform, external_id, event_type, resource_type, raw_payload, processed, created_at, processed_at`

func (s *webhookEventStore) Create(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO webhook_events (id, source_platform, external_id, event_type, resource_type, raw_payload, processed)
		VALUES ($1, $2, $3, $4, $5, $6, false)
		RETURNING `+webhookEventColumns,
		event.ID, event.SourcePlatform, event.ExternalID, event.EventType, event.ResourceType, []byte(event.RawPayload),
	)
	return scanWebhookEvent(row)
}

func (s *webhookEventStore) GetByID(ctx context.Context, id int64) (*model.WebhookEvent, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+webhookEventColumns+`
		FROM webhook_events
		WHERE id = $1`, id)
	event, err := scanWebhookEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *webhookEventStore) MarkProcessed(ctx context.Context, id int64) error {
	// processed never reverts; the WHERE clause makes repeat calls no-ops
	tag, err := s.q.Exec(ctx, `
		UPDATE webhook_events
		SET processed = true, processed_at = now()
		WHERE id = $1 AND processed = false`, id)
	if err != nil {
		return fmt.Errorf("marking event processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either already processed or missing; distinguish for callers
		var exists bool
		if err := s.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM webhook_events WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (s *webhookEventStore) ListUnprocessed(ctx context.Context, limit int32) ([]model.WebhookEvent, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+webhookEventColumns+`
		FROM webhook_events
		WHERE processed = false
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.WebhookEvent
	for rows.Next() {
		event, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *event)
	}
	return result, rows.Err()
}

func scanWebhookEvent(row pgx.Row) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	var payload []byte
	if err := row.Scan(
		&event.ID,
		&event.SourcePlatform,
		&event.ExternalID,
		&event.EventType,
		&event.ResourceType,
		&payload,
		&event.Processed,
		&event.CreatedAt,
		&event.ProcessedAt,
	); err != nil {
		return nil, err
	}
	event.RawPayload = payload
	return &event, nil
}
