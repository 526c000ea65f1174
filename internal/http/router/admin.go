package router

import (
	"github.com/gin-gonic/gin"

	"reflex.app/assistant/internal/http/handler"
)

// AdminRouter mounts hook management and event inspection behind the
// admin API key.
func AdminRouter(rg *gin.RouterGroup, h *handler.AdminHandler) {
	admin := rg.Group("")
	admin.Use(h.RequireAdminAPIKey())
	{
		admin.GET("/hooks", h.ListHooks)
		admin.POST("/hooks/:name/enable", h.EnableHook)
		admin.POST("/hooks/:name/disable", h.DisableHook)
		admin.DELETE("/hooks/:name", h.DeleteHook)
		admin.GET("/events/unprocessed", h.ListUnprocessedEvents)
	}
}
