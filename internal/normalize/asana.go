package normalize

import (
	"context"
	"log/slog"
	"time"

	"reflex.app/assistant/internal/asana"
	"reflex.app/assistant/internal/model"
)

// AsanaNormalizer expands an Asana webhook delivery into one event per
// element of the payload's events list, hydrating newly created resources
// through the Asana client.
type AsanaNormalizer struct {
	client asana.Client
}

func NewAsanaNormalizer(client asana.Client) *AsanaNormalizer {
	return &AsanaNormalizer{client: client}
}

// Normalize returns one Event per sub-event. Malformed elements are logged
// and skipped rather than failing the whole delivery. An empty events list
// yields an empty slice, which callers treat as an ignored delivery.
func (n *AsanaNormalizer) Normalize(ctx context.Context, payload map[string]any) []Event {
	raw, ok := payload["events"].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}

	events := make([]Event, 0, len(raw))
	for i, item := range raw {
		sub, ok := item.(map[string]any)
		if !ok {
			slog.WarnContext(ctx, "skipping malformed asana event", "index", i)
			continue
		}
		event, ok := n.normalizeOne(ctx, sub, i)
		if !ok {
			continue
		}
		events = append(events, event)
	}
	return events
}

func (n *AsanaNormalizer) normalizeOne(ctx context.Context, item map[string]any, index int) (Event, bool) {
	action := str(item, "action")
	resource := sub(item, "resource")
	if action == "" || resource == nil {
		slog.WarnContext(ctx, "skipping asana event without action or resource", "index", index)
		return Event{}, false
	}

	event := Event{
		Platform:     model.PlatformAsana,
		EventType:    action,
		ResourceType: str(resource, "resource_type"),
		ResourceID:   str(resource, "gid"),
		ActorID:      str(sub(item, "user"), "gid"),
		Payload:      item,
		Timestamp:    asanaTimestamp(item),
	}

	if action == "created" {
		n.hydrateCreated(ctx, &event)
	}

	return event, true
}

// hydrateCreated enriches a created task or project with the full object,
// since the webhook delivery only carries the GID. Hydration failures keep
// the raw payload; the event still dispatches.
func (n *AsanaNormalizer) hydrateCreated(ctx context.Context, event *Event) {
	if n.client == nil || event.ResourceID == "" {
		return
	}

	switch event.ResourceType {
	case "task":
		task, err := n.client.GetTask(ctx, event.ResourceID)
		if err != nil {
			slog.WarnContext(ctx, "could not hydrate created task", "gid", event.ResourceID, "error", err)
			return
		}
		detail := map[string]any{
			"name":      task.Name,
			"notes":     task.Notes,
			"completed": task.Completed,
			"due_on":    task.DueOn,
		}
		if task.Assignee != nil {
			detail["assignee_gid"] = task.Assignee.GID
		}
		event.Payload["task"] = detail
		event.Payload["content"] = task.Name

	case "project":
		project, err := n.client.GetProject(ctx, event.ResourceID)
		if err != nil {
			slog.WarnContext(ctx, "could not hydrate created project", "gid", event.ResourceID, "error", err)
			return
		}
		event.Payload["project"] = map[string]any{
			"name":  project.Name,
			"notes": project.Notes,
		}
		event.Payload["content"] = project.Name
	}
}

func asanaTimestamp(item map[string]any) time.Time {
	if created := str(item, "created_at"); created != "" {
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			return ts.UTC()
		}
	}
	return time.Now().UTC()
}
