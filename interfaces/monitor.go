package interfaces

import (
	"context"
	"time"
)

// MonitorService is the auto-reply orchestrator. One instance runs at most
// one background polling loop; control operations are serialized with it.
type MonitorService interface {
	Start(ctx context.Context) error
	Stop() error
	Restart(ctx context.Context) error
	ForceCheck(ctx context.Context) CheckOutcome
	GetStatus() MonitorSnapshot
	UpdateSettings(ctx context.Context, settings MonitorSettings) error
	HealthCheck(ctx context.Context) MonitorHealth
}

type CheckOutcome struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Processed int       `json:"processed"`
	Timestamp time.Time `json:"timestamp"`
}

type MonitorStats struct {
	EmailsProcessed int    `json:"emailsProcessed"`
	RepliesSent     int    `json:"repliesSent"`
	Errors          int    `json:"errors"`
	LastError       string `json:"lastError,omitempty"`
}

type MonitorSnapshot struct {
	IsRunning        bool          `json:"isRunning"`
	CheckInterval    time.Duration `json:"checkInterval"`
	AutoReplyEnabled bool          `json:"autoReplyEnabled"`
	MaxPerCheck      int           `json:"maxPerCheck"`
	LastCheckAt      *time.Time    `json:"lastCheckAt,omitempty"`
	ProcessedCount   int           `json:"processedCount"`
	Stats            MonitorStats  `json:"stats"`
}

// MonitorSettings carries live-updatable settings; nil fields are unchanged.
type MonitorSettings struct {
	CheckInterval    *time.Duration `json:"checkInterval,omitempty"`
	AutoReplyEnabled *bool          `json:"autoReplyEnabled,omitempty"`
	MaxPerCheck      *int           `json:"maxPerCheck,omitempty"`
}

type MonitorHealth struct {
	Healthy   bool                          `json:"healthy"`
	IsRunning bool                          `json:"isRunning"`
	Services  map[string]CollaboratorHealth `json:"services"`
	Stats     MonitorStats                  `json:"stats"`
}
