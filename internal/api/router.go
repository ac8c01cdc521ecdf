package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alerting-service/internal/config"
	"alerting-service/internal/logging"
	"alerting-service/internal/ws"
)

func NewRouter(h *Handler, hub *ws.Hub, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(cfg.API.BasePath)
	{
		// Alerts
		api.GET("/alerts", h.GetAlerts)
		api.PATCH("/alerts/:id/read", h.MarkAlertRead)
		api.DELETE("/alerts/:id", h.DeleteAlert)
		api.POST("/alerts/read-all", h.MarkAllAlertsRead)
		api.POST("/alerts/purge", h.PurgeAlerts)

		// Notifications
		api.GET("/notifications", h.GetNotifications)
		api.POST("/notifications", h.CreateNotification)
		api.PATCH("/notifications/:id/read", h.MarkNotificationRead)
		api.DELETE("/notifications/:id", h.DeleteNotification)
		api.POST("/notifications/read-all", h.MarkAllNotificationsRead)
		api.POST("/notifications/purge", h.PurgeNotifications)
		api.POST("/notifications/sync", h.SyncNotifications)
	}

	r.GET("/ws", WebSocketHandler(hub, logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
