package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/repository"
)

// ListReplyRecords queries the audit log. Filters are passed as query
// parameters; dates use RFC 3339.
func ListReplyRecords(repo repository.ReplyRecordRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := repository.ReplyRecordFilter{
			Sender:    c.Query("sender"),
			Recipient: c.Query("recipient"),
			Action:    enum.EmailAction(c.Query("action")),
		}
		filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
		filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

		if raw := c.Query("startDate"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startDate"})
				return
			}
			filter.StartDate = &t
		}
		if raw := c.Query("endDate"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endDate"})
				return
			}
			filter.EndDate = &t
		}

		records, err := repo.Query(c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
	}
}
