package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reflex.app/assistant/internal/http/handler/webhook"
)

// WebhookRouter mounts the provider ingestion endpoints. Each provider
// gets a health probe so upstream registrations can be validated without
// crafting a signed delivery.
func WebhookRouter(rg *gin.RouterGroup, slack *webhook.SlackHandler, gmail *webhook.GmailHandler, asana *webhook.AsanaHandler) {
	slackGroup := rg.Group("/slack")
	{
		slackGroup.POST("/events", slack.HandleEvents)
		slackGroup.POST("/interactive", slack.HandleInteractive)
		slackGroup.GET("/health", providerHealth("slack"))
	}

	gmailGroup := rg.Group("/gmail")
	{
		gmailGroup.POST("/notifications", gmail.HandleNotifications)
		gmailGroup.GET("/health", providerHealth("gmail"))
	}

	asanaGroup := rg.Group("/asana")
	{
		asanaGroup.POST("/events", asana.HandleEvents)
		asanaGroup.GET("/health", providerHealth("asana"))
	}
}

func providerHealth(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": provider + "-webhooks"})
	}
}
