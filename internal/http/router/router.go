package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reflex.app/assistant/internal/http/handler"
	"reflex.app/assistant/internal/http/handler/webhook"
)

type RouterConfig struct {
	IsProduction bool
	AdminAPIKey  string
}

// Handlers aggregates the resource handlers wired by cmd/server.
type Handlers struct {
	Slack   *webhook.SlackHandler
	Gmail   *webhook.GmailHandler
	Asana   *webhook.AsanaHandler
	Admin   *handler.AdminHandler
	Metrics http.Handler
}

func SetupRoutes(router *gin.Engine, h Handlers, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(h.Metrics))

	WebhookRouter(router.Group("/webhooks"), h.Slack, h.Gmail, h.Asana)

	v1 := router.Group("/api/v1")
	{
		AdminRouter(v1, h.Admin)
	}
}
