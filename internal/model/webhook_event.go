package model

import (
	"encoding/json"
	"time"
)

// Platform represents the webhook source platform
type Platform string

const (
	PlatformSlack Platform = "slack"
	PlatformGmail Platform = "gmail"
	PlatformAsana Platform = "asana"
)

// WebhookEvent is the persisted record of an accepted webhook delivery.
// A row is inserted before any handler runs; an unprocessed row after a
// crash marks a delivery that needs replay or inspection.
type WebhookEvent struct {
	ID             int64           `json:"id"`
	SourcePlatform Platform        `json:"source_platform"`
	ExternalID     *string         `json:"external_id,omitempty"`
	EventType      *string         `json:"event_type,omitempty"`
	ResourceType   *string         `json:"resource_type,omitempty"`
	RawPayload     json.RawMessage `json:"raw_payload"`
	Processed      bool            `json:"processed"`
	CreatedAt      time.Time       `json:"created_at"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
}
