package store

import (
	"fmt"
	"math"
	"time"

	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/domain"
)

// WriteLabelsCSV writes the label table with churn_label as 0/1, matching
// the interchange format downstream training reads.
func WriteLabelsCSV(path string, rows []domain.LabelRecord) error {
	n := len(rows)
	users := make([]float64, n)
	dates := make([]string, n)
	future := make([]float64, n)
	churn := make([]float64, n)
	for i, rec := range rows {
		users[i] = float64(rec.UserID)
		dates[i] = rec.AsOfDate.Format(dataset.DateLayout)
		future[i] = float64(rec.FutureActiveDays)
		if rec.ChurnLabel {
			churn[i] = 1
		}
	}

	frame := dataset.NewFrame()
	for _, col := range []*dataset.Column{
		{Name: "user_id", Type: dataset.Numeric, Nums: users},
		{Name: "as_of_date", Type: dataset.Categorical, Cats: dates},
		{Name: "future_active_days", Type: dataset.Numeric, Nums: future},
		{Name: "churn_label", Type: dataset.Numeric, Nums: churn},
	} {
		if err := frame.AddColumn(col); err != nil {
			return err
		}
	}
	return dataset.WriteCSV(path, frame)
}

// ReadLabelsCSV loads a label table previously written by WriteLabelsCSV.
func ReadLabelsCSV(path string) ([]domain.LabelRecord, error) {
	schema := dataset.NewSchema()
	schema.DeclareNumeric("user_id", "future_active_days", "churn_label")
	schema.DeclareCategorical("as_of_date")

	frame, err := dataset.ReadCSV(path, schema)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{"user_id", "as_of_date", "future_active_days", "churn_label"} {
		if !frame.HasColumn(required) {
			return nil, fmt.Errorf("%w: %s: missing column %q", domain.ErrSchemaInvalid, path, required)
		}
	}

	users := frame.Column("user_id").Nums
	dates := frame.Column("as_of_date").Cats
	future := frame.Column("future_active_days").Nums
	churn := frame.Column("churn_label").Nums

	out := make([]domain.LabelRecord, 0, frame.NumRows())
	for r := 0; r < frame.NumRows(); r++ {
		if math.IsNaN(users[r]) || math.IsNaN(future[r]) || math.IsNaN(churn[r]) {
			return nil, fmt.Errorf("%w: %s: row %d has non-numeric fields", domain.ErrSchemaInvalid, path, r+1)
		}
		day, err := time.Parse(dataset.DateLayout, dates[r])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: row %d: as_of_date %q is not an ISO date", domain.ErrSchemaInvalid, path, r+1, dates[r])
		}
		out = append(out, domain.LabelRecord{
			UserID:           int64(users[r]),
			AsOfDate:         day,
			FutureActiveDays: int(future[r]),
			ChurnLabel:       churn[r] != 0,
		})
	}
	return out, nil
}
