package stats

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/repository"
	"github.com/replystack/replystack/internal/tracing"
)

type statsService struct {
	records repository.ReplyRecordRepository
	log     logger.Logger
}

func NewStatsService(records repository.ReplyRecordRepository, log logger.Logger) interfaces.StatsService {
	return &statsService{
		records: records,
		log:     log,
	}
}

func (s *statsService) EmailStats(ctx context.Context, from, to time.Time) (*interfaces.EmailStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "StatsService.EmailStats")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	counts, err := s.records.CountByAction(ctx, from, to)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	stats := &interfaces.EmailStats{
		From:     from,
		To:       to,
		ByAction: make(map[string]int64),
	}
	for _, c := range counts {
		stats.ByAction[c.Action.String()] = c.Count
		switch c.Action {
		case enum.ActionReceived:
			stats.Received = c.Count
		case enum.ActionAutoReplied:
			stats.AutoReplied = c.Count
		case enum.ActionAutoReplyFailed:
			stats.AutoReplyFailed = c.Count
		case enum.ActionReplySkipped:
			stats.Skipped = c.Count
		case enum.ActionProcessingError:
			stats.ProcessingErrors = c.Count
		}
	}
	if stats.Received > 0 {
		stats.ReplyRate = float64(stats.AutoReplied) / float64(stats.Received)
	}

	return stats, nil
}

func (s *statsService) DailyVolume(ctx context.Context, from, to time.Time) ([]interfaces.DailyVolume, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "StatsService.DailyVolume")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	received, err := s.records.CountByDay(ctx, from, to, enum.ActionReceived)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	replied, err := s.records.CountByDay(ctx, from, to, enum.ActionAutoReplied)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	repliedByDay := make(map[time.Time]int64, len(replied))
	for _, c := range replied {
		repliedByDay[c.Day] = c.Count
	}

	volumes := make([]interfaces.DailyVolume, 0, len(received))
	for _, c := range received {
		volumes = append(volumes, interfaces.DailyVolume{
			Day:      c.Day,
			Received: c.Count,
			Replied:  repliedByDay[c.Day],
		})
	}
	return volumes, nil
}
