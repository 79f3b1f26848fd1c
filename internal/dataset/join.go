package dataset

import (
	"fmt"
	"math"

	"github.com/churnflow/churnflow/internal/domain"
)

// JoinLabels inner-joins a feature frame with label records on
// (user_id, as_of_date). Feature rows without a label are dropped; those are
// the trailing dates whose look-ahead window was incomplete. The label
// columns are appended after the feature columns.
func JoinLabels(features *Frame, labels []domain.LabelRecord) (*Frame, error) {
	if !features.HasColumn("user_id") || !features.HasColumn("as_of_date") {
		return nil, fmt.Errorf("%w: features need user_id and as_of_date", domain.ErrSchemaInvalid)
	}
	userCol := features.Column("user_id")
	if userCol.Type != Numeric {
		return nil, fmt.Errorf("%w: user_id must be numeric", domain.ErrSchemaInvalid)
	}
	dateCol := features.Column("as_of_date")
	if dateCol.Type != Categorical {
		return nil, fmt.Errorf("%w: as_of_date must be an ISO date column", domain.ErrSchemaInvalid)
	}

	byKey := make(map[string]domain.LabelRecord, len(labels))
	for _, l := range labels {
		byKey[joinKey(l.UserID, l.AsOfDate.Format(DateLayout))] = l
	}

	keep := make([]int, 0, features.NumRows())
	future := make([]float64, 0, features.NumRows())
	churn := make([]float64, 0, features.NumRows())
	for r := 0; r < features.NumRows(); r++ {
		uid := userCol.Nums[r]
		if math.IsNaN(uid) {
			continue
		}
		l, ok := byKey[joinKey(int64(uid), dateCol.Cats[r])]
		if !ok {
			continue
		}
		keep = append(keep, r)
		future = append(future, float64(l.FutureActiveDays))
		if l.ChurnLabel {
			churn = append(churn, 1)
		} else {
			churn = append(churn, 0)
		}
	}

	out := features.TakeRows(keep)
	if err := out.AddColumn(&Column{Name: "future_active_days", Type: Numeric, Nums: future}); err != nil {
		return nil, err
	}
	if err := out.AddColumn(&Column{Name: "churn_label", Type: Numeric, Nums: churn}); err != nil {
		return nil, err
	}
	return out, nil
}

func joinKey(userID int64, date string) string {
	return fmt.Sprintf("%d|%s", userID, date)
}
