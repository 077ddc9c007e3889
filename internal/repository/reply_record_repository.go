package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/models"
	"github.com/replystack/replystack/internal/tracing"
	"github.com/replystack/replystack/internal/utils"
)

// ReplyRecordFilter narrows Query results. Zero values are ignored.
type ReplyRecordFilter struct {
	Sender    string
	Recipient string
	Action    enum.EmailAction
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

type ActionCount struct {
	Action enum.EmailAction `json:"action"`
	Count  int64            `json:"count"`
}

type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// ReplyRecordRepository is the append-only audit log. Rows are inserted and
// never updated, except for a pending delivery status moving to a terminal
// value via UpdateStatus.
type ReplyRecordRepository interface {
	Append(ctx context.Context, record *models.ReplyRecord) (string, error)
	UpdateStatus(ctx context.Context, id string, status enum.DeliveryStatus, errorMessage string) error
	Query(ctx context.Context, filter ReplyRecordFilter) ([]models.ReplyRecord, error)
	HasRecentAutoReply(ctx context.Context, recipient string, window time.Duration) (bool, error)
	CountByAction(ctx context.Context, from, to time.Time) ([]ActionCount, error)
	CountByDay(ctx context.Context, from, to time.Time, action enum.EmailAction) ([]DailyCount, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type replyRecordRepository struct {
	db *gorm.DB
}

func NewReplyRecordRepository(db *gorm.DB) ReplyRecordRepository {
	return &replyRecordRepository{
		db: db,
	}
}

func (r *replyRecordRepository) Append(ctx context.Context, record *models.ReplyRecord) (string, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "ReplyRecordRepository.Append")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.LogKV("emailId", record.EmailID, "action", record.Action.String())

	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return "", err
	}

	return record.ID, nil
}

func (r *replyRecordRepository) UpdateStatus(ctx context.Context, id string, status enum.DeliveryStatus, errorMessage string) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "ReplyRecordRepository.UpdateStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	// Only a pending record may transition, and only its status fields move.
	result := r.db.WithContext(ctx).
		Model(&models.ReplyRecord{}).
		Where("id = ? AND status = ?", id, enum.DeliveryStatusPending).
		UpdateColumn("status", status).
		UpdateColumn("error_message", errorMessage)
	if result.Error != nil {
		tracing.TraceErr(span, errors.Wrap(result.Error, "db error"))
		return result.Error
	}
	if result.RowsAffected == 0 {
		err := errors.New("record not found or not pending")
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func (r *replyRecordRepository) Query(ctx context.Context, filter ReplyRecordFilter) ([]models.ReplyRecord, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "ReplyRecordRepository.Query")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	query := r.db.WithContext(ctx).Model(&models.ReplyRecord{})

	if filter.Sender != "" {
		query = query.Where("sender = ?", filter.Sender)
	}
	if filter.Recipient != "" {
		query = query.Where("recipient = ?", filter.Recipient)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.StartDate != nil {
		query = query.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("created_at <= ?", *filter.EndDate)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}

	var records []models.ReplyRecord
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&records).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	span.LogFields(tracingLog.Int("result.count", len(records)))
	return records, nil
}

func (r *replyRecordRepository) HasRecentAutoReply(ctx context.Context, recipient string, window time.Duration) (bool, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "ReplyRecordRepository.HasRecentAutoReply")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.LogKV("recipient", recipient)

	since := utils.Now().Add(-window)

	// Failed deliveries never reached the recipient and do not open a
	// cooldown window; pending ones are in flight and do.
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReplyRecord{}).
		Where("recipient = ? AND action = ? AND created_at >= ? AND status <> ?",
			recipient, enum.ActionAutoReplied, since, enum.DeliveryStatusFailed).
		Count(&count).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return false, err
	}

	span.LogFields(tracingLog.Bool("response.exists", count > 0))
	return count > 0, nil
}

func (r *replyRecordRepository) CountByAction(ctx context.Context, from, to time.Time) ([]ActionCount, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "ReplyRecordRepository.CountByAction")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var counts []ActionCount
	err := r.db.WithContext(ctx).
		Model(&models.ReplyRecord{}).
		Select("action, count(*) as count").
		Where("created_at >= ? AND created_at <= ?", from, to).
		Group("action").
		Scan(&counts).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	return counts, nil
}

func (r *replyRecordRepository) CountByDay(ctx context.Context, from, to time.Time, action enum.EmailAction) ([]DailyCount, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "ReplyRecordRepository.CountByDay")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	query := r.db.WithContext(ctx).
		Model(&models.ReplyRecord{}).
		Select("date_trunc('day', created_at) as day, count(*) as count").
		Where("created_at >= ? AND created_at <= ?", from, to)
	if action != "" {
		query = query.Where("action = ?", action)
	}

	var counts []DailyCount
	err := query.Group("day").Order("day").Scan(&counts).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	return counts, nil
}

func (r *replyRecordRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "ReplyRecordRepository.DeleteOlderThan")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ReplyRecord{})
	if result.Error != nil {
		tracing.TraceErr(span, errors.Wrap(result.Error, "db error"))
		return 0, result.Error
	}

	span.LogFields(tracingLog.Int64("deleted", result.RowsAffected))
	return result.RowsAffected, nil
}
