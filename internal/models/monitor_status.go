package models

import (
	"time"
)

// MonitorStatus persists whether the monitor was active, so a restart of the
// process can resume monitoring where it left off.
type MonitorStatus struct {
	ID            uint64     `gorm:"primary_key;autoIncrement"`
	ServiceName   string     `gorm:"column:service_name;type:varchar(100);NOT NULL;uniqueIndex"`
	IsActive      bool       `gorm:"column:is_active;type:boolean;NOT NULL;DEFAULT:false"`
	LastCheckAt   *time.Time `gorm:"column:last_check_at;type:timestamp"`
	LastError     string     `gorm:"column:last_error;type:text"`
	CheckInterval int        `gorm:"column:check_interval_seconds"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;type:timestamp;DEFAULT:current_timestamp"`
}

func (MonitorStatus) TableName() string {
	return "monitor_statuses"
}
