package interfaces

import (
	"context"
	"time"

	"github.com/replystack/replystack/internal/models"
)

// BulkCampaignService runs bulk send campaigns in the background.
// Submit returns as soon as the job is persisted; sending happens on a
// separate goroutine. Cancellation is advisory: it is observed between
// batches, never inside one.
type BulkCampaignService interface {
	Submit(ctx context.Context, req BulkSubmitRequest) (string, error)
	GetStatus(ctx context.Context, jobID string) (*models.BulkJob, error)
	Cancel(ctx context.Context, jobID string) error
	ListJobs(ctx context.Context, limit, offset int) ([]models.BulkJob, error)
}

type BulkSubmitRequest struct {
	Name            string           `json:"name,omitempty"`
	Recipients      []BatchRecipient `json:"recipients"`
	Subject         string           `json:"subject"`
	Body            string           `json:"body"`
	ContentType     string           `json:"contentType"`
	FromName        string           `json:"fromName,omitempty"`
	BatchSize       int              `json:"batchSize,omitempty"`
	InterBatchDelay time.Duration    `json:"interBatchDelay,omitempty"`
}
