package domain

import "time"

// ActivityRecord is one user-day of raw activity as written by upstream
// ingestion. Rows are immutable; there is exactly one per (user_id, as_of_date).
type ActivityRecord struct {
	UserID       int64     `gorm:"column:user_id;not null;index:idx_activity_user_day,unique" json:"user_id"`
	AsOfDate     time.Time `gorm:"column:as_of_date;type:date;not null;index:idx_activity_user_day,unique" json:"as_of_date"`
	IsActiveDay  bool      `gorm:"column:is_active_day;not null" json:"is_active_day"`
	Sessions     float64   `gorm:"column:sessions;not null;default:0" json:"sessions"`
	WatchMinutes float64   `gorm:"column:watch_minutes;not null;default:0" json:"watch_minutes"`
	QuizAttempts float64   `gorm:"column:quiz_attempts;not null;default:0" json:"quiz_attempts"`
}

func (ActivityRecord) TableName() string { return "user_activity_daily" }
