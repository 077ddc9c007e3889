package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/services/monitor"
)

// MonitorStatus returns the live monitor snapshot.
func MonitorStatus(svc interfaces.MonitorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.GetStatus())
	}
}

func StartMonitor(svc interfaces.MonitorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Start(c.Request.Context()); err != nil {
			if errors.Is(err, monitor.ErrAlreadyRunning) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "email monitoring started"})
	}
}

func StopMonitor(svc interfaces.MonitorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Stop(); err != nil {
			if errors.Is(err, monitor.ErrNotRunning) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "email monitoring stopped"})
	}
}

func RestartMonitor(svc interfaces.MonitorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Restart(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "email monitoring restarted"})
	}
}

func ForceCheck(svc interfaces.MonitorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome := svc.ForceCheck(c.Request.Context())
		if !outcome.Success {
			c.JSON(http.StatusConflict, outcome)
			return
		}
		c.JSON(http.StatusOK, outcome)
	}
}

type monitorSettingsRequest struct {
	CheckIntervalSeconds *int  `json:"checkIntervalSeconds,omitempty"`
	AutoReplyEnabled     *bool `json:"autoReplyEnabled,omitempty"`
	MaxPerCheck          *int  `json:"maxPerCheck,omitempty"`
}

func UpdateMonitorSettings(svc interfaces.MonitorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req monitorSettingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		settings := interfaces.MonitorSettings{
			AutoReplyEnabled: req.AutoReplyEnabled,
			MaxPerCheck:      req.MaxPerCheck,
		}
		if req.CheckIntervalSeconds != nil {
			interval := time.Duration(*req.CheckIntervalSeconds) * time.Second
			settings.CheckInterval = &interval
		}

		if err := svc.UpdateSettings(c.Request.Context(), settings); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, svc.GetStatus())
	}
}
