package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"reflex.app/assistant/internal/ingest"
	"reflex.app/assistant/internal/model"
	"reflex.app/assistant/internal/normalize"
	"reflex.app/assistant/internal/verify"
)

type AsanaHandler struct {
	verifier   verify.Verifier
	normalizer *normalize.AsanaNormalizer
	ingest     *ingest.Service
}

func NewAsanaHandler(verifier verify.Verifier, normalizer *normalize.AsanaNormalizer, ingest *ingest.Service) *AsanaHandler {
	return &AsanaHandler{
		verifier:   verifier,
		normalizer: normalizer,
		ingest:     ingest,
	}
}

// HandleEvents receives Asana webhook deliveries. The very first request
// on a new webhook is a handshake carrying X-Hook-Secret, which must be
// echoed back; regular deliveries carry a (possibly empty) events list.
func (h *AsanaHandler) HandleEvents(c *gin.Context) {
	ctx := c.Request.Context()

	if secret := c.GetHeader("X-Hook-Secret"); secret != "" {
		slog.InfoContext(ctx, "completing asana webhook handshake")
		c.Header("X-Hook-Secret", secret)
		c.Status(http.StatusOK)
		return
	}

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
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	webhookID := nestedStr(payload, "webhook", "gid")
	events, _ := payload["events"].([]any)
	slog.InfoContext(ctx, "received asana webhook", "webhook_id", webhookID, "event_count", len(events))

	stored, err := h.ingest.Persist(ctx, model.PlatformAsana, webhookID, "events", "", body)
	if err != nil {
		slog.ErrorContext(ctx, "failed to persist asana event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	envelopes := h.normalizer.Normalize(ctx, payload)
	if _, err := h.ingest.Process(ctx, stored, envelopes); err != nil {
		slog.ErrorContext(ctx, "failed to process asana event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if len(events) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
