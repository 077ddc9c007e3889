package models

import (
	"time"

	"github.com/replystack/replystack/internal/enum"
)

// BulkJob tracks one bulk send campaign. Counters are updated after each
// batch completes, not per message. Cancellation is advisory: a cancel
// request marks the row but an in-flight batch still runs to completion.
type BulkJob struct {
	ID              string         `gorm:"column:id;type:varchar(50);primaryKey" json:"jobId"`
	Name            string         `gorm:"column:name;type:varchar(255)" json:"name"`
	Subject         string         `gorm:"column:subject;type:varchar(1000)" json:"subject"`
	Status          enum.JobStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	RecipientsCount int            `gorm:"column:recipients_count" json:"recipientsCount"`
	SentCount       int            `gorm:"column:sent_count" json:"sentCount"`
	FailedCount     int            `gorm:"column:failed_count" json:"failedCount"`
	BatchSize       int            `gorm:"column:batch_size" json:"batchSize"`
	ErrorMessage    string         `gorm:"column:error_message;type:text" json:"errorMessage,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at;type:timestamp;index;default:current_timestamp" json:"createdAt"`
	StartedAt       *time.Time     `gorm:"column:started_at;type:timestamp" json:"startedAt,omitempty"`
	CompletedAt     *time.Time     `gorm:"column:completed_at;type:timestamp" json:"completedAt,omitempty"`
}

func (BulkJob) TableName() string {
	return "bulk_jobs"
}
