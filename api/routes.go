package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/replystack/replystack/api/handlers"
	"github.com/replystack/replystack/api/middleware"
	"github.com/replystack/replystack/internal/repository"
	"github.com/replystack/replystack/internal/tracing"
	"github.com/replystack/replystack/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	// Liveness and readiness endpoints stay unauthenticated
	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", handlers.Health(s.MonitorService))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-REPLYSTACK-API-KEY",
		ValidAPIKey: apikey,
	})

	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(tracing.TracingEnhancer(ctx, "/v1"))
	{
		monitor := api.Group("/monitor")
		{
			monitor.GET("/status", handlers.MonitorStatus(s.MonitorService))
			monitor.POST("/start", handlers.StartMonitor(s.MonitorService))
			monitor.POST("/stop", handlers.StopMonitor(s.MonitorService))
			monitor.POST("/restart", handlers.RestartMonitor(s.MonitorService))
			monitor.POST("/check", handlers.ForceCheck(s.MonitorService))
			monitor.PUT("/settings", handlers.UpdateMonitorSettings(s.MonitorService))
		}

		bulk := api.Group("/bulk")
		{
			bulk.POST("", handlers.SubmitBulkJob(s.BulkService))
			bulk.GET("", handlers.ListBulkJobs(s.BulkService))
			bulk.GET("/:id", handlers.GetBulkJob(s.BulkService))
			bulk.POST("/:id/cancel", handlers.CancelBulkJob(s.BulkService))
		}

		domains := api.Group("/domains")
		{
			domains.GET("", handlers.ListDomains(repos.DomainRepository))
			domains.POST("", handlers.UpsertDomain(repos.DomainRepository, s.DomainGate))
			domains.DELETE("/:domain", handlers.DeleteDomain(repos.DomainRepository, s.DomainGate))
		}

		records := api.Group("/records")
		{
			records.GET("", handlers.ListReplyRecords(repos.ReplyRecordRepository))
		}

		stats := api.Group("/stats")
		{
			stats.GET("/emails", handlers.EmailStats(s.StatsService))
			stats.GET("/daily", handlers.DailyVolume(s.StatsService))
		}
	}
}
