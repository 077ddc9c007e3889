package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/utils"
)

func statsWindow(c *gin.Context) (time.Time, time.Time) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days <= 0 || days > 365 {
		days = 30
	}
	to := utils.Now()
	return to.AddDate(0, 0, -days), to
}

func EmailStats(svc interfaces.StatsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to := statsWindow(c)
		stats, err := svc.EmailStats(c.Request.Context(), from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func DailyVolume(svc interfaces.StatsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to := statsWindow(c)
		volumes, err := svc.DailyVolume(c.Request.Context(), from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"days": volumes, "count": len(volumes)})
	}
}
