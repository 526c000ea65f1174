// Package normalize maps provider-specific webhook payload shapes into the
// provider-agnostic event envelope consumed by hook dispatch.
package normalize

import (
	"time"

	"reflex.app/assistant/internal/model"
)

// Event is the normalized envelope derived from a raw webhook payload.
// Ignored events are a first-class outcome (bot chatter, empty batches,
// deletions) so routers can acknowledge without dispatching.
type Event struct {
	Platform     model.Platform
	EventType    string
	ResourceType string
	ResourceID   string
	ActorID      string
	Payload      map[string]any
	Timestamp    time.Time
	Ignored      bool
	IgnoreReason string
}

func ignored(platform model.Platform, reason string) Event {
	return Event{
		Platform:     platform,
		Ignored:      true,
		IgnoreReason: reason,
		Timestamp:    time.Now().UTC(),
	}
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func sub(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if s, ok := m[key].(map[string]any); ok {
		return s
	}
	return nil
}
