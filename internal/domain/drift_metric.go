package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DriftMetric stores one per-feature PSI observation from a monitoring run.
// History rows are append-only; each run is a point-in-time snapshot against
// the static reference baseline.
type DriftMetric struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	RunID       uuid.UUID `gorm:"column:run_id;type:uuid;not null;index" json:"run_id"`
	FeatureName string    `gorm:"column:feature_name;type:text;not null;index" json:"feature_name"`
	PSI         float64   `gorm:"column:psi;not null;default:0" json:"psi"`
	Verdict     string    `gorm:"column:verdict;type:text;not null;default:'none';index" json:"verdict"`

	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DriftMetric) TableName() string { return "drift_metrics" }
