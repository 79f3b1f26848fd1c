package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/churnflow/churnflow/internal/domain"
	"github.com/churnflow/churnflow/internal/platform/logger"
)

type DriftMetricRepo interface {
	CreateMany(ctx context.Context, tx *gorm.DB, rows []*domain.DriftMetric) ([]*domain.DriftMetric, error)
	ListByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]*domain.DriftMetric, error)
}

type driftMetricRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDriftMetricRepo(db *gorm.DB, baseLog *logger.Logger) DriftMetricRepo {
	return &driftMetricRepo{db: db, log: baseLog.With("repo", "DriftMetricRepo")}
}

func (r *driftMetricRepo) CreateMany(ctx context.Context, tx *gorm.DB, rows []*domain.DriftMetric) ([]*domain.DriftMetric, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*domain.DriftMetric{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *driftMetricRepo) ListByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]*domain.DriftMetric, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.DriftMetric
	if runID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("feature_name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
