package models

import (
	"time"
)

// DomainPolicy controls whether senders from a domain receive auto-replies.
type DomainPolicy struct {
	ID               uint64    `gorm:"primary_key;autoIncrement" json:"id"`
	Domain           string    `gorm:"column:domain;type:varchar(255);NOT NULL;uniqueIndex" json:"domain"`
	IsAllowed        bool      `gorm:"column:is_allowed;type:boolean;NOT NULL;DEFAULT:false" json:"isAllowed"`
	IsBlocked        bool      `gorm:"column:is_blocked;type:boolean;NOT NULL;DEFAULT:false" json:"isBlocked"`
	AutoReplyEnabled bool      `gorm:"column:auto_reply_enabled;type:boolean;NOT NULL;DEFAULT:true" json:"autoReplyEnabled"`
	CreatedAt        time.Time `gorm:"column:created_at;type:timestamp;DEFAULT:current_timestamp" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"column:updated_at;type:timestamp;DEFAULT:current_timestamp" json:"updatedAt"`
}

func (DomainPolicy) TableName() string {
	return "domain_policies"
}
