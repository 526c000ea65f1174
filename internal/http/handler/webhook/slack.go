package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"reflex.app/assistant/common/logger"
	"reflex.app/assistant/internal/ingest"
	"reflex.app/assistant/internal/model"
	"reflex.app/assistant/internal/normalize"
	"reflex.app/assistant/internal/verify"
)

type SlackHandler struct {
	verifier   verify.Verifier
	normalizer *normalize.SlackNormalizer
	ingest     *ingest.Service
}

func NewSlackHandler(verifier verify.Verifier, normalizer *normalize.SlackNormalizer, ingest *ingest.Service) *SlackHandler {
	return &SlackHandler{
		verifier:   verifier,
		normalizer: normalizer,
		ingest:     ingest,
	}
}

// HandleEvents receives Slack Events API callbacks. url_verification
// challenges are echoed without touching the database; everything else is
// persisted before any hook runs.
func (h *SlackHandler) HandleEvents(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if result := h.verifier.Verify(ctx, c.Request.Header, body); !result.OK {
		c.JSON(http.StatusUnauthorized, gin.H{"error": result.Reason})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.WarnContext(ctx, "rejecting malformed slack payload", "body", logger.Truncate(string(body), 256))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	payloadType, _ := payload["type"].(string)
	slog.InfoContext(ctx, "received slack event", "type", payloadType)

	if payloadType == "url_verification" {
		challenge, _ := payload["challenge"].(string)
		c.JSON(http.StatusOK, gin.H{"challenge": challenge})
		return
	}

	externalID, _ := payload["event_id"].(string)
	eventType := ""
	if event, ok := payload["event"].(map[string]any); ok {
		eventType, _ = event["type"].(string)
	}

	stored, err := h.ingest.Persist(ctx, model.PlatformSlack, externalID, eventType, "", body)
	if err != nil {
		slog.ErrorContext(ctx, "failed to persist slack event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	envelope := h.normalizer.Normalize(payload)
	if _, err := h.ingest.Process(ctx, stored, []normalize.Event{envelope}); err != nil {
		slog.ErrorContext(ctx, "failed to process slack event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleInteractive receives interactive component callbacks (buttons,
// modals, shortcuts). Slack posts them form-encoded with the JSON in a
// `payload` field; the signature covers the raw form body.
func (h *SlackHandler) HandleInteractive(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if result := h.verifier.Verify(ctx, c.Request.Header, body); !result.OK {
		c.JSON(http.StatusUnauthorized, gin.H{"error": result.Reason})
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	raw := form.Get("payload")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Missing payload"})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	componentType, _ := payload["type"].(string)
	slog.InfoContext(ctx, "received slack interactive component", "type", componentType)

	stored, err := h.ingest.Persist(ctx, model.PlatformSlack, "", componentType, "", []byte(raw))
	if err != nil {
		slog.ErrorContext(ctx, "failed to persist slack interaction", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	envelopes := normalizeInteractive(ctx, componentType, payload)
	if _, err := h.ingest.Process(ctx, stored, envelopes); err != nil {
		slog.ErrorContext(ctx, "failed to process slack interaction", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// normalizeInteractive sub-routes interactive payloads by component type.
// Unknown component types are acknowledged without dispatch.
func normalizeInteractive(ctx context.Context, componentType string, payload map[string]any) []normalize.Event {
	switch componentType {
	case "block_actions":
		return normalizeBlockActions(ctx, payload)
	case "view_submission":
		return normalizeViewSubmission(ctx, payload)
	case "shortcut":
		return normalizeShortcut(ctx, payload)
	default:
		slog.WarnContext(ctx, "unknown slack interactive component type", "type", componentType)
		return nil
	}
}

func normalizeBlockActions(ctx context.Context, payload map[string]any) []normalize.Event {
	userID := nestedStr(payload, "user", "id")
	channelID := nestedStr(payload, "channel", "id")

	actions, _ := payload["actions"].([]any)
	var envelopes []normalize.Event
	for _, a := range actions {
		action, ok := a.(map[string]any)
		if !ok {
			continue
		}
		actionID, _ := action["action_id"].(string)
		value, _ := action["value"].(string)

		slog.InfoContext(ctx, "processing slack action", "action_id", actionID, "value", value)

		envelopes = append(envelopes, normalize.Event{
			Platform:  model.PlatformSlack,
			EventType: "block_actions",
			ActorID:   userID,
			Payload: map[string]any{
				"action_id":  actionID,
				"value":      value,
				"channel_id": channelID,
				"content":    value,
				"category":   actionCategory(actionID),
			},
			Timestamp: time.Now().UTC(),
		})
	}
	return envelopes
}

func normalizeViewSubmission(ctx context.Context, payload map[string]any) []normalize.Event {
	view, _ := payload["view"].(map[string]any)
	callbackID, _ := view["callback_id"].(string)
	userID := nestedStr(payload, "user", "id")

	slog.InfoContext(ctx, "processing slack modal submission", "callback_id", callbackID)

	var values map[string]any
	if state, ok := view["state"].(map[string]any); ok {
		values, _ = state["values"].(map[string]any)
	}

	return []normalize.Event{{
		Platform:  model.PlatformSlack,
		EventType: "view_submission",
		ActorID:   userID,
		Payload: map[string]any{
			"callback_id": callbackID,
			"values":      values,
			"content":     callbackID,
		},
		Timestamp: time.Now().UTC(),
	}}
}

func normalizeShortcut(ctx context.Context, payload map[string]any) []normalize.Event {
	callbackID, _ := payload["callback_id"].(string)
	userID := nestedStr(payload, "user", "id")

	slog.InfoContext(ctx, "processing slack shortcut", "callback_id", callbackID)

	return []normalize.Event{{
		Platform:  model.PlatformSlack,
		EventType: "shortcut",
		ActorID:   userID,
		Payload: map[string]any{
			"callback_id": callbackID,
			"content":     callbackID,
		},
		Timestamp: time.Now().UTC(),
	}}
}

// actionCategory buckets an action_id by its conventional prefix
// (approve_{type}_{id}, reject_{type}_{id}, create_task_{id}).
func actionCategory(actionID string) string {
	switch {
	case strings.HasPrefix(actionID, "approve_"):
		return "approval"
	case strings.HasPrefix(actionID, "reject_"):
		return "rejection"
	case strings.HasPrefix(actionID, "create_task_"):
		return "task_creation"
	default:
		return "unknown"
	}
}

func nestedStr(m map[string]any, outer, inner string) string {
	if sub, ok := m[outer].(map[string]any); ok {
		if s, ok := sub[inner].(string); ok {
			return s
		}
	}
	return ""
}
