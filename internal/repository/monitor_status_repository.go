package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/replystack/replystack/internal/models"
	"github.com/replystack/replystack/internal/tracing"
	"github.com/replystack/replystack/internal/utils"
)

type MonitorStatusRepository interface {
	Get(ctx context.Context, serviceName string) (*models.MonitorStatus, error)
	SetActive(ctx context.Context, serviceName string, isActive bool, checkInterval int) error
	RecordCheck(ctx context.Context, serviceName string, lastError string) error
}

type monitorStatusRepository struct {
	db *gorm.DB
}

func NewMonitorStatusRepository(db *gorm.DB) MonitorStatusRepository {
	return &monitorStatusRepository{
		db: db,
	}
}

func (r *monitorStatusRepository) Get(ctx context.Context, serviceName string) (*models.MonitorStatus, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "MonitorStatusRepository.Get")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.LogKV("service", serviceName)

	var status models.MonitorStatus
	err := r.db.WithContext(ctx).
		Where("service_name = ?", serviceName).
		First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	return &status, nil
}

func (r *monitorStatusRepository) SetActive(ctx context.Context, serviceName string, isActive bool, checkInterval int) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "MonitorStatusRepository.SetActive")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.LogKV("service", serviceName, "active", isActive)

	status := models.MonitorStatus{
		ServiceName:   serviceName,
		IsActive:      isActive,
		CheckInterval: checkInterval,
		UpdatedAt:     utils.Now(),
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "service_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_active", "check_interval_seconds", "updated_at"}),
		}).
		Create(&status).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}

	return nil
}

func (r *monitorStatusRepository) RecordCheck(ctx context.Context, serviceName string, lastError string) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "MonitorStatusRepository.RecordCheck")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.LogKV("service", serviceName)

	err := r.db.WithContext(ctx).
		Model(&models.MonitorStatus{}).
		Where("service_name = ?", serviceName).
		UpdateColumn("last_check_at", utils.Now()).
		UpdateColumn("last_error", lastError).
		UpdateColumn("updated_at", utils.Now()).
		Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}

	return nil
}
