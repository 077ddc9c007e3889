package bulk

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/models"
	"github.com/replystack/replystack/internal/utils"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

// fakeBatchTransport simulates batch sends honoring BatchSize, the progress
// callback and cancellation between batches.
type fakeBatchTransport struct {
	failEvery  int
	batchDelay time.Duration
}

func (f *fakeBatchTransport) SendOne(ctx context.Context, req interfaces.SendRequest) interfaces.SendResult {
	return interfaces.SendResult{Success: true}
}

func (f *fakeBatchTransport) SendBatch(ctx context.Context, req interfaces.BatchSendRequest) interfaces.BatchSendResult {
	result := interfaces.BatchSendResult{Total: len(req.Recipients)}
	for start := 0; start < len(req.Recipients); start += req.BatchSize {
		if ctx.Err() != nil {
			result.Failed += len(req.Recipients) - start
			result.Errors = append(result.Errors, "cancelled")
			return result
		}
		end := start + req.BatchSize
		if end > len(req.Recipients) {
			end = len(req.Recipients)
		}
		for i := start; i < end; i++ {
			if f.failEvery > 0 && (i+1)%f.failEvery == 0 {
				result.Failed++
				result.Errors = append(result.Errors, "hard bounce")
			} else {
				result.Sent++
			}
		}
		if req.OnBatchDone != nil {
			req.OnBatchDone(result.Sent, result.Failed)
		}
		if f.batchDelay > 0 && end < len(req.Recipients) {
			select {
			case <-time.After(f.batchDelay):
			case <-ctx.Done():
			}
		}
	}
	return result
}

func (f *fakeBatchTransport) HealthCheck(ctx context.Context) interfaces.CollaboratorHealth {
	return interfaces.CollaboratorHealth{Healthy: true, CheckedAt: utils.Now()}
}

// fakeJobRepo is an in-memory BulkJobRepository.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*models.BulkJob
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*models.BulkJob)}
}

func (f *fakeJobRepo) Create(ctx context.Context, job *models.BulkJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *job
	f.jobs[job.ID] = &stored
	return nil
}

func (f *fakeJobRepo) GetByID(ctx context.Context, jobID string) (*models.BulkJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobRepo) List(ctx context.Context, limit, offset int) ([]models.BulkJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.BulkJob, 0, len(f.jobs))
	for _, job := range f.jobs {
		out = append(out, *job)
	}
	return out, nil
}

func (f *fakeJobRepo) UpdateStatus(ctx context.Context, jobID string, status enum.JobStatus, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[jobID]; ok {
		job.Status = status
		job.ErrorMessage = errorMessage
	}
	return nil
}

func (f *fakeJobRepo) UpdateProgress(ctx context.Context, jobID string, sent, failed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[jobID]; ok {
		job.SentCount = sent
		job.FailedCount = failed
	}
	return nil
}

func newTestService(transport interfaces.MailTransport, repo *fakeJobRepo) *bulkService {
	return NewBulkService(
		&config.BulkConfig{
			BatchSize:         10,
			InterBatchDelay:   time.Millisecond,
			MaxBulkRecipients: 100,
		},
		getLogger(),
		transport,
		repo,
	).(*bulkService)
}

func recipients(n int) []interfaces.BatchRecipient {
	out := make([]interfaces.BatchRecipient, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, interfaces.BatchRecipient{Email: fmt.Sprintf("user%d@example.com", i)})
	}
	return out
}

func submitRequest(n int) interfaces.BulkSubmitRequest {
	return interfaces.BulkSubmitRequest{
		Recipients: recipients(n),
		Subject:    "Launch",
		Body:       "We shipped.",
	}
}

func waitForTerminal(t *testing.T, svc *bulkService, jobID string) *models.BulkJob {
	t.Helper()
	var job *models.BulkJob
	assert.Eventually(t, func() bool {
		var err error
		job, err = svc.GetStatus(context.Background(), jobID)
		return err == nil && job != nil && job.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestSubmit_Validation(t *testing.T) {
	svc := newTestService(&fakeBatchTransport{}, newFakeJobRepo())
	ctx := context.Background()

	_, err := svc.Submit(ctx, interfaces.BulkSubmitRequest{Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, ErrNoRecipients)

	_, err = svc.Submit(ctx, submitRequest(101))
	assert.ErrorIs(t, err, ErrTooManyRecipients)

	req := submitRequest(2)
	req.Subject = ""
	_, err = svc.Submit(ctx, req)
	assert.ErrorIs(t, err, ErrEmptySubject)

	req = submitRequest(2)
	req.Body = ""
	_, err = svc.Submit(ctx, req)
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestSubmit_RunsToCompletion(t *testing.T) {
	repo := newFakeJobRepo()
	svc := newTestService(&fakeBatchTransport{}, repo)

	jobID, err := svc.Submit(context.Background(), submitRequest(25))
	assert.NoError(t, err)
	assert.NotEmpty(t, jobID)

	job := waitForTerminal(t, svc, jobID)
	assert.Equal(t, enum.JobStatusCompleted, job.Status)
	assert.Equal(t, 25, job.RecipientsCount)
	assert.Equal(t, 25, job.SentCount)
	assert.Equal(t, 0, job.FailedCount)
}

func TestSubmit_PartialFailuresStillComplete(t *testing.T) {
	repo := newFakeJobRepo()
	svc := newTestService(&fakeBatchTransport{failEvery: 5}, repo)

	jobID, err := svc.Submit(context.Background(), submitRequest(20))
	assert.NoError(t, err)

	job := waitForTerminal(t, svc, jobID)
	assert.Equal(t, enum.JobStatusCompleted, job.Status)
	assert.Equal(t, 16, job.SentCount)
	assert.Equal(t, 4, job.FailedCount)
	assert.Equal(t, "hard bounce", job.ErrorMessage)
}

func TestSubmit_AllFailuresMarkFailed(t *testing.T) {
	repo := newFakeJobRepo()
	svc := newTestService(&fakeBatchTransport{failEvery: 1}, repo)

	jobID, err := svc.Submit(context.Background(), submitRequest(10))
	assert.NoError(t, err)

	job := waitForTerminal(t, svc, jobID)
	assert.Equal(t, enum.JobStatusFailed, job.Status)
	assert.Equal(t, 0, job.SentCount)
	assert.Equal(t, 10, job.FailedCount)
}

func TestCancel_RunningJob(t *testing.T) {
	repo := newFakeJobRepo()
	svc := newTestService(&fakeBatchTransport{batchDelay: 50 * time.Millisecond}, repo)
	ctx := context.Background()

	jobID, err := svc.Submit(ctx, submitRequest(100))
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		job, _ := svc.GetStatus(ctx, jobID)
		return job != nil && job.Status == enum.JobStatusRunning
	}, 5*time.Second, 5*time.Millisecond)

	assert.NoError(t, svc.Cancel(ctx, jobID))

	job := waitForTerminal(t, svc, jobID)
	assert.Equal(t, enum.JobStatusCancelled, job.Status)
	assert.Less(t, job.SentCount, 100)
}

func TestCancel_UnknownJob(t *testing.T) {
	svc := newTestService(&fakeBatchTransport{}, newFakeJobRepo())

	assert.ErrorIs(t, svc.Cancel(context.Background(), "missing"), ErrJobNotFound)
}

func TestCancel_TerminalJobRejected(t *testing.T) {
	repo := newFakeJobRepo()
	svc := newTestService(&fakeBatchTransport{}, repo)
	ctx := context.Background()

	jobID, err := svc.Submit(ctx, submitRequest(5))
	assert.NoError(t, err)
	waitForTerminal(t, svc, jobID)

	assert.ErrorIs(t, svc.Cancel(ctx, jobID), ErrJobNotCancellable)
}

func TestGetStatus_UnknownJob(t *testing.T) {
	svc := newTestService(&fakeBatchTransport{}, newFakeJobRepo())

	_, err := svc.GetStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
