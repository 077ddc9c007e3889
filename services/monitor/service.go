package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/cache"
	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/repository"
	"github.com/replystack/replystack/internal/tracing"
	"github.com/replystack/replystack/internal/utils"
)

const serviceName = "email_monitor"

// stopTimeout bounds how long Stop waits for the polling goroutine.
const stopTimeout = 10 * time.Second

// restartPause separates the Stop and Start halves of a restart.
const restartPause = 500 * time.Millisecond

var (
	ErrAlreadyRunning = errors.New("email monitoring is already running")
	ErrNotRunning     = errors.New("email monitoring is not running")
	ErrStopTimeout    = errors.New("email monitoring did not stop in time")
	ErrSendFailed     = errors.New("auto-reply delivery failed")
)

type monitorService struct {
	cfg        *config.MonitorConfig
	log        logger.Logger
	mailbox    interfaces.MailboxReader
	replies    interfaces.ReplyGenerator
	transport  interfaces.MailTransport
	gate       interfaces.DomainGate
	processed  cache.ProcessedCache
	records    repository.ReplyRecordRepository
	statusRepo repository.MonitorStatusRepository
	events     interfaces.EventPublisher

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	loopDone chan struct{}

	// live settings, guarded by mu
	checkInterval    time.Duration
	autoReplyEnabled bool
	maxPerCheck      int

	lastCheckAt *time.Time
	stats       interfaces.MonitorStats

	// tickMu serializes polling ticks with ForceCheck.
	tickMu sync.Mutex
}

// NewMonitorService wires the auto-reply orchestrator. events may be nil;
// publishing is then skipped.
func NewMonitorService(
	cfg *config.MonitorConfig,
	log logger.Logger,
	mailbox interfaces.MailboxReader,
	replies interfaces.ReplyGenerator,
	transport interfaces.MailTransport,
	gate interfaces.DomainGate,
	processed cache.ProcessedCache,
	records repository.ReplyRecordRepository,
	statusRepo repository.MonitorStatusRepository,
	events interfaces.EventPublisher,
) interfaces.MonitorService {
	return &monitorService{
		cfg:              cfg,
		log:              log,
		mailbox:          mailbox,
		replies:          replies,
		transport:        transport,
		gate:             gate,
		processed:        processed,
		records:          records,
		statusRepo:       statusRepo,
		events:           events,
		checkInterval:    clampInterval(cfg.CheckInterval, cfg.MinCheckInterval),
		autoReplyEnabled: cfg.AutoReplyEnabled,
		maxPerCheck:      cfg.MaxPerCheck,
	}
}

func clampInterval(interval, min time.Duration) time.Duration {
	if interval < min {
		return min
	}
	return interval
}

func (s *monitorService) Start(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MonitorService.Start")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}

	if err := s.mailbox.Connect(ctx); err != nil {
		s.mu.Unlock()
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "mailbox connect failed")
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.running = true
	interval := s.checkInterval
	s.mu.Unlock()

	go s.pollLoop(loopCtx)

	if err := s.statusRepo.SetActive(ctx, serviceName, true, int(interval.Seconds())); err != nil {
		s.log.Warnf("failed to persist monitor status: %v", err)
	}
	s.log.Infof("email monitoring started, interval %s", interval)
	return nil
}

func (s *monitorService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	cancel := s.cancel
	done := s.loopDone
	s.running = false
	s.cancel = nil
	s.loopDone = nil
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		s.log.Error("polling loop did not exit within stop timeout")
		return ErrStopTimeout
	}

	s.mailbox.Disconnect()

	ctx, cancelPersist := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPersist()
	if err := s.statusRepo.SetActive(ctx, serviceName, false, 0); err != nil {
		s.log.Warnf("failed to persist monitor status: %v", err)
	}
	s.log.Info("email monitoring stopped")
	return nil
}

// Restart stops the loop if running and starts fresh: the processed cache
// and the domain cache are reset so state rebuilds from persistence.
func (s *monitorService) Restart(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MonitorService.Restart")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := s.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		tracing.TraceErr(span, err)
		return err
	}

	s.processed.Reset()
	s.gate.Reset()

	s.mu.Lock()
	s.stats = interfaces.MonitorStats{}
	s.mu.Unlock()

	// Let the IMAP server settle before reconnecting.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(restartPause):
	}

	return s.Start(ctx)
}

func (s *monitorService) pollLoop(ctx context.Context) {
	defer close(s.loopDone)

	for {
		s.mu.Lock()
		interval := s.checkInterval
		s.mu.Unlock()

		if err := s.tick(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Errorf("monitoring tick failed: %v", err)
			s.mu.Lock()
			s.stats.Errors++
			s.stats.LastError = err.Error()
			s.mu.Unlock()

			// Back off no longer than a minute so transient mailbox
			// failures recover quickly.
			if interval > time.Minute {
				interval = time.Minute
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// tick runs one polling pass. Per-message failures are recorded and skipped;
// only mailbox-level failures surface as tick errors.
func (s *monitorService) tick(ctx context.Context) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.tickLocked(ctx)
}

// tickLocked is the body of tick; callers must hold tickMu.
func (s *monitorService) tickLocked(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MonitorService.tick")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	now := utils.Now()
	s.mu.Lock()
	s.lastCheckAt = &now
	maxPerCheck := s.maxPerCheck
	s.mu.Unlock()

	messages, err := s.mailbox.ListUnread(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		s.recordCheck(ctx, err.Error())
		return err
	}
	if len(messages) > maxPerCheck {
		messages = messages[:maxPerCheck]
	}
	span.SetTag("messages.count", len(messages))

	for _, msg := range messages {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.handleMessage(ctx, msg)
	}

	s.recordCheck(ctx, "")
	return nil
}

func (s *monitorService) recordCheck(ctx context.Context, lastError string) {
	if err := s.statusRepo.RecordCheck(ctx, serviceName, lastError); err != nil {
		s.log.Warnf("failed to record monitor check: %v", err)
	}
}

func (s *monitorService) ForceCheck(ctx context.Context) interfaces.CheckOutcome {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MonitorService.ForceCheck")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	outcome := interfaces.CheckOutcome{Timestamp: utils.Now()}

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	if !running {
		outcome.Error = ErrNotRunning.Error()
		tracing.TraceErr(span, ErrNotRunning)
		return outcome
	}

	// The snapshot is taken after the tick path is held, so a scheduled
	// tick finishing concurrently cannot inflate the per-call count.
	s.tickMu.Lock()
	s.mu.Lock()
	before := s.stats.EmailsProcessed
	s.mu.Unlock()

	err := s.tickLocked(ctx)

	s.mu.Lock()
	processed := s.stats.EmailsProcessed - before
	s.mu.Unlock()
	s.tickMu.Unlock()

	if err != nil {
		outcome.Error = err.Error()
		tracing.TraceErr(span, err)
		return outcome
	}

	outcome.Processed = processed
	outcome.Success = true
	return outcome
}

func (s *monitorService) GetStatus() interfaces.MonitorSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return interfaces.MonitorSnapshot{
		IsRunning:        s.running,
		CheckInterval:    s.checkInterval,
		AutoReplyEnabled: s.autoReplyEnabled,
		MaxPerCheck:      s.maxPerCheck,
		LastCheckAt:      s.lastCheckAt,
		ProcessedCount:   s.processed.Size(),
		Stats:            s.stats,
	}
}

func (s *monitorService) UpdateSettings(ctx context.Context, settings interfaces.MonitorSettings) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MonitorService.UpdateSettings")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.CheckInterval != nil {
		s.checkInterval = clampInterval(*settings.CheckInterval, s.cfg.MinCheckInterval)
		span.SetTag("checkInterval", s.checkInterval.String())
	}
	if settings.AutoReplyEnabled != nil {
		s.autoReplyEnabled = *settings.AutoReplyEnabled
		span.SetTag("autoReplyEnabled", s.autoReplyEnabled)
	}
	if settings.MaxPerCheck != nil && *settings.MaxPerCheck > 0 {
		s.maxPerCheck = *settings.MaxPerCheck
		span.SetTag("maxPerCheck", s.maxPerCheck)
	}

	s.log.Infof("monitor settings updated: interval=%s autoReply=%v maxPerCheck=%d",
		s.checkInterval, s.autoReplyEnabled, s.maxPerCheck)
	return nil
}

func (s *monitorService) HealthCheck(ctx context.Context) interfaces.MonitorHealth {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MonitorService.HealthCheck")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	s.mu.Lock()
	health := interfaces.MonitorHealth{
		IsRunning: s.running,
		Stats:     s.stats,
		Services:  make(map[string]interfaces.CollaboratorHealth),
	}
	s.mu.Unlock()

	health.Services["mailbox"] = s.mailbox.HealthCheck(ctx)
	health.Services["reply_generator"] = s.replies.HealthCheck(ctx)
	health.Services["mail_transport"] = s.transport.HealthCheck(ctx)

	health.Healthy = true
	for _, svc := range health.Services {
		if !svc.Healthy {
			health.Healthy = false
			break
		}
	}
	return health
}
