package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"reflex.app/assistant/internal/hook"
	"reflex.app/assistant/internal/ingest"
)

const maxUnprocessedPageSize = 200

// AdminHandler exposes hook management and event replay inspection.
type AdminHandler struct {
	registry    *hook.Registry
	ingest      *ingest.Service
	adminAPIKey string
}

func NewAdminHandler(registry *hook.Registry, ingest *ingest.Service, adminAPIKey string) *AdminHandler {
	return &AdminHandler{
		registry:    registry,
		ingest:      ingest,
		adminAPIKey: adminAPIKey,
	}
}

// RequireAdminAPIKey middleware checks for valid admin API key
func (h *AdminHandler) RequireAdminAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminAPIKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin API not configured"})
			c.Abort()
			return
		}

		apiKey := c.GetHeader("X-Admin-API-Key")
		if apiKey == "" {
			apiKey = c.GetHeader("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}

		if apiKey != h.adminAPIKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}

type hookResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Platforms   []string `json:"platforms"`
	EventTypes  []string `json:"event_types"`
	Actions     []string `json:"actions"`
	Enabled     bool     `json:"enabled"`
}

func (h *AdminHandler) ListHooks(c *gin.Context) {
	hooks := h.registry.List()
	resp := make([]hookResponse, 0, len(hooks))
	for _, hk := range hooks {
		resp = append(resp, toHookResponse(hk))
	}
	c.JSON(http.StatusOK, gin.H{"hooks": resp})
}

func (h *AdminHandler) EnableHook(c *gin.Context) {
	h.setHookEnabled(c, true)
}

func (h *AdminHandler) DisableHook(c *gin.Context) {
	h.setHookEnabled(c, false)
}

func (h *AdminHandler) setHookEnabled(c *gin.Context, enabled bool) {
	name := c.Param("name")
	if !h.registry.SetEnabled(name, enabled) {
		c.JSON(http.StatusNotFound, gin.H{"error": "hook not found"})
		return
	}

	hk, _ := h.registry.Get(name)
	c.JSON(http.StatusOK, toHookResponse(hk))
}

func (h *AdminHandler) DeleteHook(c *gin.Context) {
	name := c.Param("name")
	if _, ok := h.registry.Get(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "hook not found"})
		return
	}

	h.registry.Unregister(name)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type unprocessedEventResponse struct {
	ID           int64   `json:"id"`
	Platform     string  `json:"platform"`
	ExternalID   *string `json:"external_id,omitempty"`
	EventType    *string `json:"event_type,omitempty"`
	ResourceType *string `json:"resource_type,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// ListUnprocessedEvents surfaces persisted events that never completed
// dispatch, the starting point for manual replay after a crash.
func (h *AdminHandler) ListUnprocessedEvents(c *gin.Context) {
	limit := int32(50)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 || parsed > maxUnprocessedPageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = int32(parsed)
	}

	events, err := h.ingest.Unprocessed(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	resp := make([]unprocessedEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, unprocessedEventResponse{
			ID:           e.ID,
			Platform:     string(e.SourcePlatform),
			ExternalID:   e.ExternalID,
			EventType:    e.EventType,
			ResourceType: e.ResourceType,
			CreatedAt:    e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": resp})
}

func toHookResponse(hk hook.Hook) hookResponse {
	platforms := make([]string, 0, len(hk.Trigger.Platforms))
	for _, p := range hk.Trigger.Platforms {
		platforms = append(platforms, string(p))
	}
	return hookResponse{
		Name:        hk.Name,
		Description: hk.Description,
		Platforms:   platforms,
		EventTypes:  hk.Trigger.EventTypes,
		Actions:     hk.Actions,
		Enabled:     hk.Enabled,
	}
}
