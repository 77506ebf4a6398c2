package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthInfo describes what the running instance has configured.
type HealthInfo struct {
	AIProvider   string
	AIConfigured bool
	RemoteStore  bool
	Queue        bool
}

func SetupHealthRoutes(router *gin.Engine, info HealthInfo) {
	started := time.Now()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"ai_provider":    info.AIProvider,
			"ai_configured":  info.AIConfigured,
			"remote_store":   info.RemoteStore,
			"queue":          info.Queue,
			"uptime_seconds": int(time.Since(started).Seconds()),
		})
	})
}
