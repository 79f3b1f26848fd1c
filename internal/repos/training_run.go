package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/churnflow/churnflow/internal/domain"
	"github.com/churnflow/churnflow/internal/platform/logger"
)

type TrainingRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *domain.TrainingRun) error
	GetBest(ctx context.Context, tx *gorm.DB, modelType string) (*domain.TrainingRun, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*domain.TrainingRun, error)
}

type trainingRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrainingRunRepo(db *gorm.DB, baseLog *logger.Logger) TrainingRunRepo {
	return &trainingRunRepo{db: db, log: baseLog.With("repo", "TrainingRunRepo")}
}

func (r *trainingRunRepo) Create(ctx context.Context, tx *gorm.DB, run *domain.TrainingRun) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if run == nil {
		return nil
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(run).Error
}

// GetBest returns the highest-PR-AUC run, optionally restricted to one model
// type. PR-AUC is the selection metric for imbalanced churn.
func (r *trainingRunRepo) GetBest(ctx context.Context, tx *gorm.DB, modelType string) (*domain.TrainingRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&domain.TrainingRun{})
	if modelType != "" {
		q = q.Where("model_type = ?", modelType)
	}
	var run domain.TrainingRun
	err := q.Order("pr_auc DESC").Limit(1).Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *trainingRunRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*domain.TrainingRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*domain.TrainingRun
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
