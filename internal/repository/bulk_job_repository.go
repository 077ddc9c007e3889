package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/models"
	"github.com/replystack/replystack/internal/tracing"
	"github.com/replystack/replystack/internal/utils"
)

type BulkJobRepository interface {
	Create(ctx context.Context, job *models.BulkJob) error
	GetByID(ctx context.Context, jobID string) (*models.BulkJob, error)
	List(ctx context.Context, limit, offset int) ([]models.BulkJob, error)
	UpdateStatus(ctx context.Context, jobID string, status enum.JobStatus, errorMessage string) error
	UpdateProgress(ctx context.Context, jobID string, sent, failed int) error
}

type bulkJobRepository struct {
	db *gorm.DB
}

func NewBulkJobRepository(db *gorm.DB) BulkJobRepository {
	return &bulkJobRepository{
		db: db,
	}
}

func (r *bulkJobRepository) Create(ctx context.Context, job *models.BulkJob) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "BulkJobRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, job.ID)

	if job.CreatedAt.IsZero() {
		job.CreatedAt = utils.Now()
	}

	err := r.db.WithContext(ctx).Create(job).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}

	return nil
}

func (r *bulkJobRepository) GetByID(ctx context.Context, jobID string) (*models.BulkJob, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "BulkJobRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, jobID)

	var job models.BulkJob
	err := r.db.WithContext(ctx).
		Where("id = ?", jobID).
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	return &job, nil
}

func (r *bulkJobRepository) List(ctx context.Context, limit, offset int) ([]models.BulkJob, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "BulkJobRepository.List")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if limit <= 0 || limit > 1000 {
		limit = 50
	}

	var jobs []models.BulkJob
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	return jobs, nil
}

func (r *bulkJobRepository) UpdateStatus(ctx context.Context, jobID string, status enum.JobStatus, errorMessage string) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "BulkJobRepository.UpdateStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, jobID)
	span.LogKV("status", status.String())

	updates := map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
	}
	switch status {
	case enum.JobStatusRunning:
		updates["started_at"] = utils.Now()
	case enum.JobStatusCompleted, enum.JobStatusFailed, enum.JobStatusCancelled:
		updates["completed_at"] = utils.Now()
	}

	err := r.db.WithContext(ctx).
		Model(&models.BulkJob{}).
		Where("id = ?", jobID).
		Updates(updates).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}

	return nil
}

func (r *bulkJobRepository) UpdateProgress(ctx context.Context, jobID string, sent, failed int) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "BulkJobRepository.UpdateProgress")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, jobID)

	err := r.db.WithContext(ctx).
		Model(&models.BulkJob{}).
		Where("id = ?", jobID).
		UpdateColumn("sent_count", sent).
		UpdateColumn("failed_count", failed).
		Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}

	return nil
}
