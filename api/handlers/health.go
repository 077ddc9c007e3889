package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/replystack/replystack/interfaces"
)

// HealthCheck is the liveness probe.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Health probes the monitor and its collaborators.
func Health(svc interfaces.MonitorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := svc.HealthCheck(c.Request.Context())
		status := http.StatusOK
		if !health.Healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	}
}
