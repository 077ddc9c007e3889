package interfaces

import (
	"context"
	"time"
)

// MailEvent is published for each audit-worthy mail lifecycle transition.
type MailEvent struct {
	EventType string                 `json:"eventType"`
	EmailID   string                 `json:"emailId"`
	Sender    string                 `json:"sender,omitempty"`
	Recipient string                 `json:"recipient,omitempty"`
	Subject   string                 `json:"subject,omitempty"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
	OccurredAt time.Time             `json:"occurredAt"`
}

// EventPublisher fans mail events out to the message broker. Implementations
// must be safe to call concurrently; publishing is best-effort and never
// blocks mail processing on broker failures.
type EventPublisher interface {
	PublishMailEvent(ctx context.Context, event MailEvent) error
	Close() error
}
