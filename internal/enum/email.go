package enum

type EmailAction string

const (
	ActionReceived        EmailAction = "received"
	ActionReplied         EmailAction = "replied"
	ActionAutoReplied     EmailAction = "auto_replied"
	ActionFailed          EmailAction = "failed"
	ActionProcessingError EmailAction = "processing_error"
	ActionAutoReplyFailed EmailAction = "auto_reply_failed"
	ActionReplySkipped    EmailAction = "reply_skipped"
)

func (t EmailAction) String() string {
	return string(t)
}

type ReplyType string

const (
	ReplyTypeAuto   ReplyType = "auto"
	ReplyTypeManual ReplyType = "manual"
	ReplyTypeAI     ReplyType = "ai"
)

func (t ReplyType) String() string {
	return string(t)
}

type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

func (t DeliveryStatus) String() string {
	return string(t)
}

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

func (t JobStatus) String() string {
	return string(t)
}

// IsTerminal reports whether a job in this status can still transition.
func (t JobStatus) IsTerminal() bool {
	switch t {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}
