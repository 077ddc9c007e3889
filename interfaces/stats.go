package interfaces

import (
	"context"
	"time"
)

// StatsService aggregates the audit log into reporting shapes.
type StatsService interface {
	EmailStats(ctx context.Context, from, to time.Time) (*EmailStats, error)
	DailyVolume(ctx context.Context, from, to time.Time) ([]DailyVolume, error)
}

type EmailStats struct {
	From             time.Time        `json:"from"`
	To               time.Time        `json:"to"`
	Received         int64            `json:"received"`
	AutoReplied      int64            `json:"autoReplied"`
	AutoReplyFailed  int64            `json:"autoReplyFailed"`
	Skipped          int64            `json:"skipped"`
	ProcessingErrors int64            `json:"processingErrors"`
	ByAction         map[string]int64 `json:"byAction"`
	ReplyRate        float64          `json:"replyRate"`
}

type DailyVolume struct {
	Day      time.Time `json:"day"`
	Received int64     `json:"received"`
	Replied  int64     `json:"replied"`
}
