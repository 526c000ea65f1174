package webhook

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"reflex.app/assistant/internal/ingest"
	"reflex.app/assistant/internal/model"
	"reflex.app/assistant/internal/normalize"
	"reflex.app/assistant/internal/verify"
)

type GmailHandler struct {
	verifier   verify.Verifier
	normalizer *normalize.GmailNormalizer
	ingest     *ingest.Service
}

func NewGmailHandler(verifier verify.Verifier, normalizer *normalize.GmailNormalizer, ingest *ingest.Service) *GmailHandler {
	return &GmailHandler{
		verifier:   verifier,
		normalizer: normalizer,
		ingest:     ingest,
	}
}

// HandleNotifications receives Gmail push notifications. The interesting
// data rides in the X-Goog-* headers; the body is opaque and stored as-is.
// Sub-routing follows the resource state: sync hydrates recent messages,
// exists hydrates the one message, not_exists is a deletion and is only
// acknowledged.
func (h *GmailHandler) HandleNotifications(c *gin.Context) {
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

	channelID := c.GetHeader("X-Goog-Channel-ID")
	resourceID := c.GetHeader("X-Goog-Resource-ID")
	resourceURI := c.GetHeader("X-Goog-Resource-URI")
	resourceState := c.GetHeader("X-Goog-Resource-State")

	slog.InfoContext(ctx, "received gmail notification",
		"channel_id", channelID,
		"resource_id", resourceID,
		"resource_state", resourceState,
	)

	if len(body) == 0 {
		body = []byte("{}")
	}

	stored, err := h.ingest.Persist(ctx, model.PlatformGmail, resourceID, resourceState, "message", body)
	if err != nil {
		slog.ErrorContext(ctx, "failed to persist gmail notification", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	envelopes, err := h.normalizer.Normalize(ctx, resourceState, resourceURI)
	if err != nil {
		slog.ErrorContext(ctx, "failed to normalize gmail notification", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if _, err := h.ingest.Process(ctx, stored, envelopes); err != nil {
		slog.ErrorContext(ctx, "failed to process gmail notification", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
