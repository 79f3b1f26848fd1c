package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/churnflow/churnflow/internal/domain"
	"github.com/churnflow/churnflow/internal/platform/logger"
)

type ActivityRepo interface {
	CreateMany(ctx context.Context, tx *gorm.DB, rows []domain.ActivityRecord) error
	ListAll(ctx context.Context, tx *gorm.DB) ([]domain.ActivityRecord, error)
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) CreateMany(ctx context.Context, tx *gorm.DB, rows []domain.ActivityRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).CreateInBatches(rows, 500).Error
}

func (r *activityRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]domain.ActivityRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []domain.ActivityRecord
	if err := transaction.WithContext(ctx).
		Order("user_id ASC, as_of_date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
