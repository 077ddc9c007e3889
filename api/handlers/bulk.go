package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/services/bulk"
)

type bulkSubmitRequest struct {
	Name                  string                      `json:"name"`
	Recipients            []interfaces.BatchRecipient `json:"recipients" binding:"required"`
	Subject               string                      `json:"subject" binding:"required"`
	Body                  string                      `json:"body" binding:"required"`
	ContentType           string                      `json:"contentType"`
	FromName              string                      `json:"fromName"`
	BatchSize             int                         `json:"batchSize"`
	InterBatchDelayMillis int                         `json:"interBatchDelayMillis"`
}

func SubmitBulkJob(svc interfaces.BulkCampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bulkSubmitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		jobID, err := svc.Submit(c.Request.Context(), interfaces.BulkSubmitRequest{
			Name:            req.Name,
			Recipients:      req.Recipients,
			Subject:         req.Subject,
			Body:            req.Body,
			ContentType:     req.ContentType,
			FromName:        req.FromName,
			BatchSize:       req.BatchSize,
			InterBatchDelay: time.Duration(req.InterBatchDelayMillis) * time.Millisecond,
		})
		if err != nil {
			switch {
			case errors.Is(err, bulk.ErrNoRecipients),
				errors.Is(err, bulk.ErrTooManyRecipients),
				errors.Is(err, bulk.ErrEmptySubject),
				errors.Is(err, bulk.ErrEmptyBody):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"jobId": jobID})
	}
}

func GetBulkJob(svc interfaces.BulkCampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := svc.GetStatus(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, bulk.ErrJobNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

func CancelBulkJob(svc interfaces.BulkCampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := svc.Cancel(c.Request.Context(), c.Param("id"))
		if err != nil {
			switch {
			case errors.Is(err, bulk.ErrJobNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, bulk.ErrJobNotCancellable):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "cancellation requested"})
	}
}

func ListBulkJobs(svc interfaces.BulkCampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		jobs, err := svc.ListJobs(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
	}
}
