package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/churnflow/churnflow/internal/domain"
	"github.com/churnflow/churnflow/internal/platform/logger"
)

type LabelRepo interface {
	// ReplaceAll swaps the label table for a freshly built set in one
	// transaction, so readers never observe a half-written label run.
	ReplaceAll(ctx context.Context, tx *gorm.DB, rows []domain.LabelRecord) error
	ListAll(ctx context.Context, tx *gorm.DB) ([]domain.LabelRecord, error)
}

type labelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLabelRepo(db *gorm.DB, baseLog *logger.Logger) LabelRepo {
	return &labelRepo{db: db, log: baseLog.With("repo", "LabelRepo")}
}

func (r *labelRepo) ReplaceAll(ctx context.Context, tx *gorm.DB, rows []domain.LabelRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(t *gorm.DB) error {
		if err := t.Where("1 = 1").Delete(&domain.LabelRecord{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return t.CreateInBatches(rows, 500).Error
	})
}

func (r *labelRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]domain.LabelRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []domain.LabelRecord
	if err := transaction.WithContext(ctx).
		Order("user_id ASC, as_of_date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
