// Package scoring runs the production model over one day of features and
// writes a risk-ranked prediction table.
package scoring

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/domain"
	"github.com/churnflow/churnflow/internal/platform/fsutil"
	"github.com/churnflow/churnflow/internal/platform/logger"
	"github.com/churnflow/churnflow/internal/training"
)

type Deps struct {
	Log *logger.Logger
}

type Options struct {
	// FeaturesPath is the daily feature CSV to score.
	FeaturesPath string
	// ModelsDir must contain the production_latest artifact.
	ModelsDir      string
	PredictionsDir string

	// AsOfDate selects the scoring day (ISO date); empty scores the latest
	// date present in the features.
	AsOfDate string

	// TopK additionally writes a small highest-risk preview file. Zero
	// disables the preview.
	TopK int
}

type Result struct {
	AsOfDate    string
	Rows        int
	OutputPath  string
	PreviewPath string
}

// metaColumns are carried through to the prediction output when present,
// so the ranked file is readable without joining back to features.
var metaColumns = []string{
	"user_id",
	"as_of_date",
	"plan",
	"is_paid",
	"country",
	"marketing_source",
	"days_since_signup",
	"days_since_last_activity",
}

// Score loads the production artifact, scores every user row for one day,
// and writes predictions ranked by churn risk, highest first.
func Score(ctx context.Context, deps Deps, opts Options) (Result, error) {
	var out Result
	if ctx == nil {
		ctx = context.Background()
	}

	features, err := dataset.ReadCSV(opts.FeaturesPath, scoringSchema())
	if err != nil {
		return out, err
	}
	if !features.HasColumn("as_of_date") || !features.HasColumn("user_id") {
		return out, fmt.Errorf("%w: %s: features need user_id and as_of_date", domain.ErrSchemaInvalid, opts.FeaturesPath)
	}

	artifact, err := training.LoadArtifact(filepath.Join(opts.ModelsDir, training.ProductionAlias+".json"))
	if err != nil {
		return out, fmt.Errorf("load production model: %w", err)
	}

	day, err := pickDate(features, opts.AsOfDate)
	if err != nil {
		return out, err
	}
	dayFrame := rowsForDate(features, day)
	if dayFrame.NumRows() == 0 {
		return out, fmt.Errorf("%w: no feature rows for as_of_date=%s", domain.ErrInputMissing, day)
	}

	proba, err := artifact.PredictProba(dayFrame)
	if err != nil {
		return out, err
	}

	ranked := rankByRisk(dayFrame, proba)
	if err := fsutil.EnsureDir(opts.PredictionsDir); err != nil {
		return out, err
	}
	outputPath := filepath.Join(opts.PredictionsDir, fmt.Sprintf("churn_predictions_%s.csv", day))
	if err := dataset.WriteCSV(outputPath, ranked); err != nil {
		return out, err
	}
	out.OutputPath = outputPath

	if opts.TopK > 0 {
		k := opts.TopK
		if k > ranked.NumRows() {
			k = ranked.NumRows()
		}
		head := make([]int, k)
		for i := range head {
			head[i] = i
		}
		previewPath := filepath.Join(opts.PredictionsDir, fmt.Sprintf("churn_top_%d_%s.csv", opts.TopK, day))
		if err := dataset.WriteCSV(previewPath, ranked.TakeRows(head)); err != nil {
			return out, err
		}
		out.PreviewPath = previewPath
	}

	out.AsOfDate = day
	out.Rows = ranked.NumRows()

	if deps.Log != nil {
		deps.Log.Info("batch scoring complete",
			"as_of_date", day,
			"rows", out.Rows,
			"output", out.OutputPath)
	}
	return out, nil
}

func scoringSchema() *dataset.Schema {
	s := dataset.NewSchema()
	s.DeclareNumeric("user_id")
	s.DeclareCategorical("as_of_date", "signup_date")
	return s
}

// pickDate validates a requested date against the data or defaults to the
// latest date present.
func pickDate(features *dataset.Frame, requested string) (string, error) {
	dates, err := features.DistinctSortedDates("as_of_date")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	if len(dates) == 0 {
		return "", fmt.Errorf("%w: features contain no rows", domain.ErrInputMissing)
	}
	if requested == "" {
		return dates[len(dates)-1].Format(dataset.DateLayout), nil
	}
	for _, d := range dates {
		if d.Format(dataset.DateLayout) == requested {
			return requested, nil
		}
	}
	return "", fmt.Errorf("%w: as_of_date=%s not present (available %s..%s)",
		domain.ErrInputMissing, requested,
		dates[0].Format(dataset.DateLayout), dates[len(dates)-1].Format(dataset.DateLayout))
}

func rowsForDate(features *dataset.Frame, day string) *dataset.Frame {
	col := features.Column("as_of_date")
	var keep []int
	for r := 0; r < features.NumRows(); r++ {
		if col.Cats[r] == day {
			keep = append(keep, r)
		}
	}
	return features.TakeRows(keep)
}

// rankByRisk builds the output frame: meta columns present in the input,
// then churn_risk and a 1-based risk_rank, sorted highest risk first.
func rankByRisk(dayFrame *dataset.Frame, proba []float64) *dataset.Frame {
	order := make([]int, len(proba))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := proba[order[a]], proba[order[b]]
		if math.IsNaN(pa) {
			return false
		}
		if math.IsNaN(pb) {
			return true
		}
		return pa > pb
	})

	var keepMeta []string
	for _, name := range metaColumns {
		if dayFrame.HasColumn(name) {
			keepMeta = append(keepMeta, name)
		}
	}
	meta, _ := dayFrame.Select(keepMeta)
	ranked := meta.TakeRows(order)

	risk := make([]float64, len(order))
	rank := make([]float64, len(order))
	for i, idx := range order {
		risk[i] = proba[idx]
		rank[i] = float64(i + 1)
	}
	_ = ranked.AddColumn(&dataset.Column{Name: "churn_risk", Type: dataset.Numeric, Nums: risk})
	_ = ranked.AddColumn(&dataset.Column{Name: "risk_rank", Type: dataset.Numeric, Nums: rank})
	return ranked
}
