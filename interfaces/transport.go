package interfaces

import (
	"context"
	"time"

	"github.com/replystack/replystack/internal/enum"
)

// MailTransport sends one email or a batch through the configured
// transactional provider. Provider errors are normalized into SendResult,
// never raised to the caller.
type MailTransport interface {
	SendOne(ctx context.Context, req SendRequest) SendResult
	SendBatch(ctx context.Context, req BatchSendRequest) BatchSendResult
	HealthCheck(ctx context.Context) CollaboratorHealth
}

type SendRequest struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	ContentType string `json:"contentType"`
	FromEmail   string `json:"fromEmail,omitempty"`
	FromName    string `json:"fromName,omitempty"`
	ReplyTo     string `json:"replyTo,omitempty"`
}

type SendResult struct {
	Success   bool              `json:"success"`
	MessageID string            `json:"messageId,omitempty"`
	Provider  enum.MailProvider `json:"provider,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// BatchRecipient carries one recipient plus optional template variables
// substituted into subject and body before send.
type BatchRecipient struct {
	Email string            `json:"email"`
	Vars  map[string]string `json:"vars,omitempty"`
}

type BatchSendRequest struct {
	Recipients      []BatchRecipient `json:"recipients"`
	Subject         string           `json:"subject"`
	Body            string           `json:"body"`
	ContentType     string           `json:"contentType"`
	FromName        string           `json:"fromName,omitempty"`
	BatchSize       int              `json:"batchSize"`
	InterBatchDelay time.Duration    `json:"interBatchDelay,omitempty"`

	// OnBatchDone, when set, is invoked after each batch with cumulative
	// sent/failed counts. Used by the bulk runner for progress tracking.
	OnBatchDone func(sent, failed int) `json:"-"`
}

type BatchSendResult struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Total  int      `json:"total"`
	Errors []string `json:"errors,omitempty"`
}
