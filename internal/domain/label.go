package domain

import "time"

// LabelRecord is a derived churn label for one (user, as_of_date).
// Only dates with a complete look-ahead window get a row; the whole table is
// replaced in bulk on every label build. ChurnLabel is true exactly when
// FutureActiveDays is zero.
type LabelRecord struct {
	UserID           int64     `gorm:"column:user_id;not null;index:idx_label_user_day,unique" json:"user_id"`
	AsOfDate         time.Time `gorm:"column:as_of_date;type:date;not null;index:idx_label_user_day,unique" json:"as_of_date"`
	FutureActiveDays int       `gorm:"column:future_active_days;not null" json:"future_active_days"`
	ChurnLabel       bool      `gorm:"column:churn_label;not null" json:"churn_label"`
}

func (LabelRecord) TableName() string { return "churn_labels" }
