package store

import (
	"context"
	"errors"

	"reflex.app/assistant/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// WebhookEventStore defines the contract for webhook event persistence.
// Create must run before any handler side effect; MarkProcessed flips the
// processed flag false->true exactly once and never reverts it.
type WebhookEventStore interface {
	Create(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error)
	GetByID(ctx context.Context, id int64) (*model.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id int64) error
	ListUnprocessed(ctx context.Context, limit int32) ([]model.WebhookEvent, error)
}
