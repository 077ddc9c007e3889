package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/models"
	"github.com/replystack/replystack/internal/repository"
)

type domainPolicyRequest struct {
	Domain           string `json:"domain" binding:"required"`
	IsAllowed        bool   `json:"isAllowed"`
	IsBlocked        bool   `json:"isBlocked"`
	AutoReplyEnabled *bool  `json:"autoReplyEnabled"`
}

func ListDomains(repo repository.DomainRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		policies, err := repo.List(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"domains": policies, "count": len(policies)})
	}
}

// UpsertDomain writes a domain policy and refreshes the gate cache so the
// change applies to the next inbound message.
func UpsertDomain(repo repository.DomainRepository, gate interfaces.DomainGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req domainPolicyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		domain := strings.ToLower(strings.TrimSpace(req.Domain))
		if domain == "" || strings.ContainsAny(domain, "@ ") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid domain"})
			return
		}

		autoReply := true
		if req.AutoReplyEnabled != nil {
			autoReply = *req.AutoReplyEnabled
		}

		policy, err := repo.Upsert(c.Request.Context(), &models.DomainPolicy{
			Domain:           domain,
			IsAllowed:        req.IsAllowed,
			IsBlocked:        req.IsBlocked,
			AutoReplyEnabled: autoReply,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		gate.Reset()
		c.JSON(http.StatusOK, policy)
	}
}

func DeleteDomain(repo repository.DomainRepository, gate interfaces.DomainGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		domain := strings.ToLower(strings.TrimSpace(c.Param("domain")))
		if domain == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid domain"})
			return
		}

		if err := repo.Delete(c.Request.Context(), domain); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		gate.Reset()
		c.JSON(http.StatusOK, gin.H{"message": "domain policy deleted"})
	}
}
