package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/utils"
)

// ReplyRecord is one entry of the append-only audit log. Rows are never
// mutated after insert except to move Status from pending to a terminal value.
type ReplyRecord struct {
	ID      string `gorm:"column:id;type:varchar(50);primaryKey"`
	EmailID string `gorm:"column:email_id;type:varchar(255);index;not null"`

	Sender    string `gorm:"column:sender;type:varchar(255);index"`
	Recipient string `gorm:"column:recipient;type:varchar(255);index:idx_reply_records_cooldown,priority:1"`
	Subject   string `gorm:"column:subject;type:varchar(1000)"`
	Body      string `gorm:"column:body;type:text"`

	Action    enum.EmailAction    `gorm:"column:action;type:varchar(50);index:idx_reply_records_cooldown,priority:2;not null"`
	ReplyType enum.ReplyType      `gorm:"column:reply_type;type:varchar(20)"`
	Status    enum.DeliveryStatus `gorm:"column:status;type:varchar(20);index"`

	ErrorMessage string  `gorm:"column:error_message;type:text"`
	Metadata     JSONMap `gorm:"column:metadata;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;index:idx_reply_records_cooldown,priority:3;default:current_timestamp"`
}

func (ReplyRecord) TableName() string {
	return "reply_records"
}

func (r *ReplyRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = utils.GenerateNanoIDWithPrefix("rr", 21)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.Now()
	}
	return nil
}
