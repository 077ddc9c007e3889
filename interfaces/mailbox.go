package interfaces

import (
	"context"
	"time"

	"github.com/replystack/replystack/internal/models"
)

// MailboxReader fetches inbound mail from a remote mailbox and normalizes it
// into models.InboundMessage.
type MailboxReader interface {
	Connect(ctx context.Context) error
	Disconnect()
	ListUnread(ctx context.Context) ([]models.InboundMessage, error)
	ListRecent(ctx context.Context, hours int, limit int) ([]models.InboundMessage, error)
	MarkRead(ctx context.Context, uid uint32) error
	HealthCheck(ctx context.Context) CollaboratorHealth
}

// CollaboratorHealth is the uniform health probe result for the monitor's
// collaborators.
type CollaboratorHealth struct {
	Healthy   bool      `json:"healthy"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}
