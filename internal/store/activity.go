// Package store bridges the CSV interchange files to typed domain records.
// Database access lives in internal/repos; this package covers the
// file-based pipeline inputs and outputs.
package store

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/domain"
)

// ReadActivityCSV loads the raw user-day activity table. Required columns
// are user_id, as_of_date and is_active_day; the engagement columns are
// optional and default to zero. Rows come back sorted by user then date.
func ReadActivityCSV(path string) ([]domain.ActivityRecord, error) {
	schema := dataset.NewSchema()
	schema.DeclareNumeric("user_id", "is_active_day", "sessions", "watch_minutes", "quiz_attempts")
	schema.DeclareCategorical("as_of_date")

	frame, err := dataset.ReadCSV(path, schema)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{"user_id", "as_of_date", "is_active_day"} {
		if !frame.HasColumn(required) {
			return nil, fmt.Errorf("%w: %s: missing column %q", domain.ErrSchemaInvalid, path, required)
		}
	}

	users := frame.Column("user_id").Nums
	dates := frame.Column("as_of_date").Cats
	active := frame.Column("is_active_day").Nums
	sessions := optionalNums(frame, "sessions")
	watch := optionalNums(frame, "watch_minutes")
	quiz := optionalNums(frame, "quiz_attempts")

	out := make([]domain.ActivityRecord, 0, frame.NumRows())
	for r := 0; r < frame.NumRows(); r++ {
		if math.IsNaN(users[r]) {
			return nil, fmt.Errorf("%w: %s: row %d: user_id is not an integer", domain.ErrSchemaInvalid, path, r+1)
		}
		day, err := time.Parse(dataset.DateLayout, dates[r])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: row %d: as_of_date %q is not an ISO date", domain.ErrSchemaInvalid, path, r+1, dates[r])
		}
		flag, err := activeFlag(active[r])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: row %d: %v", domain.ErrSchemaInvalid, path, r+1, err)
		}
		out = append(out, domain.ActivityRecord{
			UserID:       int64(users[r]),
			AsOfDate:     day,
			IsActiveDay:  flag,
			Sessions:     orZero(sessions, r),
			WatchMinutes: orZero(watch, r),
			QuizAttempts: orZero(quiz, r),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].AsOfDate.Before(out[j].AsOfDate)
	})
	return out, nil
}

func activeFlag(v float64) (bool, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("is_active_day must be 0 or 1, got %v", v)
	}
}

func optionalNums(f *dataset.Frame, name string) []float64 {
	col := f.Column(name)
	if col == nil || col.Type != dataset.Numeric {
		return nil
	}
	return col.Nums
}

func orZero(vals []float64, r int) float64 {
	if vals == nil || math.IsNaN(vals[r]) {
		return 0
	}
	return vals[r]
}

// WriteActivityCSV is the inverse of ReadActivityCSV, used by the synthetic
// data generator.
func WriteActivityCSV(path string, rows []domain.ActivityRecord) error {
	n := len(rows)
	users := make([]float64, n)
	dates := make([]string, n)
	active := make([]float64, n)
	sessions := make([]float64, n)
	watch := make([]float64, n)
	quiz := make([]float64, n)
	for i, rec := range rows {
		users[i] = float64(rec.UserID)
		dates[i] = rec.AsOfDate.Format(dataset.DateLayout)
		if rec.IsActiveDay {
			active[i] = 1
		}
		sessions[i] = rec.Sessions
		watch[i] = rec.WatchMinutes
		quiz[i] = rec.QuizAttempts
	}

	frame := dataset.NewFrame()
	for _, col := range []*dataset.Column{
		{Name: "user_id", Type: dataset.Numeric, Nums: users},
		{Name: "as_of_date", Type: dataset.Categorical, Cats: dates},
		{Name: "is_active_day", Type: dataset.Numeric, Nums: active},
		{Name: "sessions", Type: dataset.Numeric, Nums: sessions},
		{Name: "watch_minutes", Type: dataset.Numeric, Nums: watch},
		{Name: "quiz_attempts", Type: dataset.Numeric, Nums: quiz},
	} {
		if err := frame.AddColumn(col); err != nil {
			return err
		}
	}
	return dataset.WriteCSV(path, frame)
}
