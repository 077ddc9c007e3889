package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/replystack/replystack/internal/models"
	"github.com/replystack/replystack/internal/tracing"
	"github.com/replystack/replystack/internal/utils"
)

type DomainRepository interface {
	Upsert(ctx context.Context, policy *models.DomainPolicy) (*models.DomainPolicy, error)
	GetByDomain(ctx context.Context, domain string) (*models.DomainPolicy, error)
	List(ctx context.Context, limit, offset int) ([]models.DomainPolicy, error)
	ListAllowed(ctx context.Context) ([]models.DomainPolicy, error)
	Delete(ctx context.Context, domain string) error
}

type domainRepository struct {
	db *gorm.DB
}

func NewDomainRepository(db *gorm.DB) DomainRepository {
	return &domainRepository{
		db: db,
	}
}

func (r *domainRepository) Upsert(ctx context.Context, policy *models.DomainPolicy) (*models.DomainPolicy, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "DomainRepository.Upsert")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.LogKV("domain", policy.Domain)

	now := utils.Now()
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = now
	}
	policy.UpdatedAt = now

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "domain"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_allowed", "is_blocked", "auto_reply_enabled", "updated_at"}),
		}).
		Create(policy).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	return policy, nil
}

func (r *domainRepository) GetByDomain(ctx context.Context, domain string) (*models.DomainPolicy, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "DomainRepository.GetByDomain")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.LogKV("domain", domain)

	var policy models.DomainPolicy
	err := r.db.WithContext(ctx).
		Where("domain = ?", domain).
		First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	return &policy, nil
}

func (r *domainRepository) List(ctx context.Context, limit, offset int) ([]models.DomainPolicy, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "DomainRepository.List")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var policies []models.DomainPolicy
	err := r.db.WithContext(ctx).
		Order("domain").
		Limit(limit).
		Offset(offset).
		Find(&policies).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	return policies, nil
}

func (r *domainRepository) ListAllowed(ctx context.Context) ([]models.DomainPolicy, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "DomainRepository.ListAllowed")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var policies []models.DomainPolicy
	err := r.db.WithContext(ctx).
		Where("is_allowed = ? AND is_blocked = ?", true, false).
		Find(&policies).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	span.LogFields(tracingLog.Int("result.count", len(policies)))
	return policies, nil
}

func (r *domainRepository) Delete(ctx context.Context, domain string) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "DomainRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.LogKV("domain", domain)

	err := r.db.WithContext(ctx).
		Where("domain = ?", domain).
		Delete(&models.DomainPolicy{}).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}

	return nil
}
