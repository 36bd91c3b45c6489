package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the API on router. The websocket endpoint is only
// served when hub is not nil.
func SetupRoutes(router *gin.Engine, handler *Handler, hub *Hub) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": Version})
	})

	v1 := router.Group("/api/v1")

	v1.GET("/status", handler.GetStatus)
	v1.GET("/config", handler.GetConfig)
	v1.GET("/community", handler.GetCommunity)
	v1.POST("/refresh", handler.Refresh)
	v1.GET("/notifications", handler.GetNotifications)
	v1.PUT("/notifications", handler.SetNotifications)

	v1.GET("/targets", handler.GetTargets)
	target := v1.Group("/targets/:name")
	target.GET("", handler.GetTarget)
	target.GET("/stats", handler.GetTargetStats)
	target.GET("/history", handler.GetTargetHistory)
	target.GET("/uptime", handler.GetTargetUptime)

	if hub != nil {
		v1.GET("/ws", ServeWebSocket(hub))
	}
}
