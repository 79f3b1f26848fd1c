package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TrainingRun is the registry row written after each successful training run.
// The artifact itself lives on disk; this row carries the headline metrics so
// promotion and audits never have to re-open artifacts.
type TrainingRun struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ModelType    string `gorm:"column:model_type;type:text;not null;index" json:"model_type"`
	ArtifactName string `gorm:"column:artifact_name;type:text;not null" json:"artifact_name"`

	PRAUC          float64 `gorm:"column:pr_auc;not null;default:0" json:"pr_auc"`
	ROCAUC         float64 `gorm:"column:roc_auc;not null;default:0" json:"roc_auc"`
	TrainRows      int     `gorm:"column:train_rows;not null;default:0" json:"train_rows"`
	TestRows       int     `gorm:"column:test_rows;not null;default:0" json:"test_rows"`
	ChurnRateTrain float64 `gorm:"column:churn_rate_train;not null;default:0" json:"churn_rate_train"`
	Converged      bool    `gorm:"column:converged;not null;default:true" json:"converged"`

	Params datatypes.JSON `gorm:"column:params" json:"params,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TrainingRun) TableName() string { return "training_runs" }
