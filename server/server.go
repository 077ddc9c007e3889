package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"gorm.io/gorm"

	"github.com/replystack/replystack/api"
	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/internal/cron"
	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/repository"
	"github.com/replystack/replystack/internal/tracing"
	"github.com/replystack/replystack/services"
)

type Server struct {
	config       *config.Config
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	cronManager  *cron.CronManager
	tracerCloser io.Closer
}

func NewServer(cfg *config.Config, db *gorm.DB) (*Server, error) {
	// Initialize logger
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	// Initialize tracing
	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		log.Fatalf("Could not initialize jaeger tracer: %s", err.Error())
	}
	opentracing.SetGlobalTracer(tracer)

	// Initialize repositories
	repos := repository.InitRepositories(db)

	// Initialize services
	svcs, err := services.InitServices(cfg, appLogger, repos)
	if err != nil {
		return nil, err
	}

	cronManager := cron.NewCronManager(cfg, appLogger, repos.ReplyRecordRepository, svcs.DomainGate)

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	return &Server{
		config:       cfg,
		router:       router,
		services:     svcs,
		repositories: repos,
		cronManager:  cronManager,
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.APIPort,
			Handler: router,
		},
	}, nil
}

func (s *Server) Initialize(ctx context.Context) error {
	// Warm the domain cache before the first inbound message
	if err := s.services.DomainGate.Refresh(ctx); err != nil {
		log.Printf("Domain cache warmup failed: %v", err)
	}

	api.RegisterRoutes(ctx, s.router, s.services, s.repositories, s.config.AppConfig.APIKey)
	return nil
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan(
			fmt.Sprintf("panic.%s", name),
		)
		defer span.Finish()

		ext.Error.Set(span, true)
		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		log.Printf("Panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Initialize(ctx); err != nil {
		return err
	}

	// Start background jobs
	s.cronManager.Start()

	// Optionally start the monitoring loop on boot
	if s.config.MonitorConfig.AutoStart {
		log.Println("Starting email monitoring...")
		s.wrapGoroutine("email_monitor", func() {
			if err := s.services.MonitorService.Start(ctx); err != nil {
				log.Printf("Email monitoring start error: %v", err)
			}
		})
	}

	go s.wrapGoroutine("http_server", func() {
		log.Printf("Starting HTTP server on port %s", s.config.AppConfig.APIPort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	})
	log.Println("ReplyStack is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	defer s.recoverWithJaeger("shutdown")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.cronManager.Stop()

	// Stop the monitoring loop; Stop itself bounds the wait
	stopDone := make(chan struct{})
	go s.wrapGoroutine("monitor_shutdown", func() {
		defer close(stopDone)
		if err := s.services.MonitorService.Stop(); err != nil {
			log.Printf("Email monitoring shutdown: %v", err)
		}
	})
	select {
	case <-stopDone:
	case <-time.After(15 * time.Second):
		log.Println("Email monitoring stop timed out, forcing exit")
	}

	if s.services.EventPublisher != nil {
		if err := s.services.EventPublisher.Close(); err != nil {
			log.Printf("Event publisher close error: %v", err)
		}
	}
	s.services.ProcessedCache.Close()

	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}

	return nil
}
