package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"alert-notification-service/internal/config"
)

func NewRouter(h *Handler, users UserResolver, logger *logrus.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLoggingMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group(cfg.API.BasePath)
	api.Use(AuthMiddleware(users, logger))
	api.Use(RateLimitMiddleware(cfg.API.RateLimitPerMinute, logger))
	{
		api.POST("/alerts/notify", h.NotifyAlerts)
		api.GET("/alerts", h.GetAlerts)
		api.GET("/ws", h.WebSocket)
	}

	return r
}
