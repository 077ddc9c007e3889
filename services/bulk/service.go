package bulk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/models"
	"github.com/replystack/replystack/internal/repository"
	"github.com/replystack/replystack/internal/tracing"
	"github.com/replystack/replystack/internal/utils"
)

var (
	ErrNoRecipients      = errors.New("no recipients provided")
	ErrTooManyRecipients = errors.New("recipient count exceeds the bulk limit")
	ErrEmptySubject      = errors.New("empty subject")
	ErrEmptyBody         = errors.New("empty body")
	ErrJobNotFound       = errors.New("bulk job not found")
	ErrJobNotCancellable = errors.New("bulk job is not cancellable")
)

type bulkService struct {
	cfg       *config.BulkConfig
	log       logger.Logger
	transport interfaces.MailTransport
	jobs      repository.BulkJobRepository

	// running holds cancel functions for jobs owned by this process.
	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewBulkService(
	cfg *config.BulkConfig,
	log logger.Logger,
	transport interfaces.MailTransport,
	jobs repository.BulkJobRepository,
) interfaces.BulkCampaignService {
	return &bulkService{
		cfg:       cfg,
		log:       log,
		transport: transport,
		jobs:      jobs,
		running:   make(map[string]context.CancelFunc),
	}
}

func (s *bulkService) Submit(ctx context.Context, req interfaces.BulkSubmitRequest) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BulkService.Submit")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("recipients.count", len(req.Recipients))
	tracing.LogObjectAsJson(span, "request", req)

	if len(req.Recipients) == 0 {
		return "", ErrNoRecipients
	}
	if len(req.Recipients) > s.cfg.MaxBulkRecipients {
		return "", errors.Wrapf(ErrTooManyRecipients, "%d > %d", len(req.Recipients), s.cfg.MaxBulkRecipients)
	}
	if req.Subject == "" {
		return "", ErrEmptySubject
	}
	if req.Body == "" {
		return "", ErrEmptyBody
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.cfg.BatchSize
	}
	delay := req.InterBatchDelay
	if delay <= 0 {
		delay = s.cfg.InterBatchDelay
	}

	jobID := uuid.New().String()
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("campaign %s", utils.Now().Format("2006-01-02 15:04"))
	}

	job := &models.BulkJob{
		ID:              jobID,
		Name:            name,
		Subject:         req.Subject,
		Status:          enum.JobStatusQueued,
		RecipientsCount: len(req.Recipients),
		BatchSize:       batchSize,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(err, "failed to persist bulk job")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.running[jobID] = cancel
	s.mu.Unlock()

	go s.run(runCtx, jobID, req, batchSize, delay)

	span.SetTag("job.id", jobID)
	s.log.Infof("bulk job %s queued with %d recipients", jobID, len(req.Recipients))
	return jobID, nil
}

func (s *bulkService) run(ctx context.Context, jobID string, req interfaces.BulkSubmitRequest, batchSize int, delay time.Duration) {
	defer func() {
		s.mu.Lock()
		delete(s.running, jobID)
		s.mu.Unlock()
	}()

	span, ctx := opentracing.StartSpanFromContext(ctx, "BulkService.run")
	defer span.Finish()
	tracing.TagComponentWorker(span)
	span.SetTag("job.id", jobID)

	if err := s.jobs.UpdateStatus(ctx, jobID, enum.JobStatusRunning, ""); err != nil {
		s.log.Errorf("bulk job %s: failed to mark running: %v", jobID, err)
	}

	result := s.transport.SendBatch(ctx, interfaces.BatchSendRequest{
		Recipients:      req.Recipients,
		Subject:         req.Subject,
		Body:            req.Body,
		ContentType:     req.ContentType,
		FromName:        req.FromName,
		BatchSize:       batchSize,
		InterBatchDelay: delay,
		OnBatchDone: func(sent, failed int) {
			if err := s.jobs.UpdateProgress(ctx, jobID, sent, failed); err != nil {
				s.log.Warnf("bulk job %s: progress update failed: %v", jobID, err)
			}
		},
	})

	if err := s.jobs.UpdateProgress(context.Background(), jobID, result.Sent, result.Failed); err != nil {
		s.log.Warnf("bulk job %s: final progress update failed: %v", jobID, err)
	}

	status := enum.JobStatusCompleted
	errorMessage := ""
	switch {
	case ctx.Err() != nil:
		status = enum.JobStatusCancelled
	case result.Sent == 0 && result.Failed > 0:
		status = enum.JobStatusFailed
		errorMessage = firstError(result.Errors)
	case result.Failed > 0:
		errorMessage = firstError(result.Errors)
	}

	if err := s.jobs.UpdateStatus(context.Background(), jobID, status, errorMessage); err != nil {
		s.log.Errorf("bulk job %s: failed to mark %s: %v", jobID, status, err)
	}
	s.log.Infof("bulk job %s finished: %s, sent=%d failed=%d", jobID, status, result.Sent, result.Failed)
}

func firstError(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	return errs[0]
}

func (s *bulkService) GetStatus(ctx context.Context, jobID string) (*models.BulkJob, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BulkService.GetStatus")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("job.id", jobID)

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// Cancel requests a running job to stop. The in-flight batch finishes; the
// runner observes cancellation before starting the next one. Queued jobs
// cancel immediately.
func (s *bulkService) Cancel(ctx context.Context, jobID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BulkService.Cancel")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("job.id", jobID)

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if job == nil {
		return ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return errors.Wrapf(ErrJobNotCancellable, "status %s", job.Status)
	}

	s.mu.Lock()
	cancel, owned := s.running[jobID]
	s.mu.Unlock()

	if owned {
		cancel()
		s.log.Infof("bulk job %s cancellation requested", jobID)
		return nil
	}

	// Not owned by this process (e.g. orphaned after a restart); mark the
	// row directly.
	return s.jobs.UpdateStatus(ctx, jobID, enum.JobStatusCancelled, "")
}

func (s *bulkService) ListJobs(ctx context.Context, limit, offset int) ([]models.BulkJob, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BulkService.ListJobs")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	return s.jobs.List(ctx, limit, offset)
}
