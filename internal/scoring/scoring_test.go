package scoring

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/domain"
	"github.com/churnflow/churnflow/internal/training"
)

// scoringFixture trains and promotes a small model, then writes a feature
// CSV spanning two dates. Returns the dirs and the latest date.
type scoringFixture struct {
	featuresPath   string
	modelsDir      string
	metricsDir     string
	predictionsDir string
	latestDate     string
}

func newFixture(t *testing.T) scoringFixture {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	n := 400
	users := make([]float64, n)
	dates := make([]string, n)
	watch := make([]float64, n)
	label := make([]float64, n)
	for i := 0; i < n; i++ {
		users[i] = float64(i)
		dates[i] = base.AddDate(0, 0, i%20).Format(dataset.DateLayout)
		if rng.Float64() < 0.3 {
			label[i] = 1
			watch[i] = rng.Float64() * 5
		} else {
			watch[i] = 50 + rng.Float64()*50
		}
	}
	table := dataset.NewFrame()
	for _, col := range []*dataset.Column{
		{Name: "user_id", Type: dataset.Numeric, Nums: users},
		{Name: "as_of_date", Type: dataset.Categorical, Cats: dates},
		{Name: "watch_minutes_7d", Type: dataset.Numeric, Nums: watch},
		{Name: "churn_label", Type: dataset.Numeric, Nums: label},
	} {
		if err := table.AddColumn(col); err != nil {
			t.Fatalf("add %s: %v", col.Name, err)
		}
	}

	dir := t.TempDir()
	fx := scoringFixture{
		modelsDir:      filepath.Join(dir, "models"),
		metricsDir:     filepath.Join(dir, "metrics"),
		predictionsDir: filepath.Join(dir, "predictions"),
	}
	_, err := training.Train(context.Background(), training.Deps{}, table, training.Options{
		TestFraction: 0.2,
		Strategy:     training.StrategyClassWeight,
		MaxIter:      2000,
		ModelsDir:    fx.modelsDir,
		MetricsDir:   fx.metricsDir,
		Now:          time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if _, err := training.Promote(nil, fx.modelsDir, fx.metricsDir); err != nil {
		t.Fatalf("promote: %v", err)
	}

	// scoring features: two days, label-free, with an extra meta column
	scoreFrame := dataset.NewFrame()
	const rows = 40
	su := make([]float64, rows)
	sd := make([]string, rows)
	sw := make([]float64, rows)
	plan := make([]string, rows)
	for i := 0; i < rows; i++ {
		su[i] = float64(1000 + i)
		if i < rows/2 {
			sd[i] = "2026-03-01"
		} else {
			sd[i] = "2026-03-02"
		}
		sw[i] = float64(i * 5)
		plan[i] = "free"
	}
	for _, col := range []*dataset.Column{
		{Name: "user_id", Type: dataset.Numeric, Nums: su},
		{Name: "as_of_date", Type: dataset.Categorical, Cats: sd},
		{Name: "plan", Type: dataset.Categorical, Cats: plan},
		{Name: "watch_minutes_7d", Type: dataset.Numeric, Nums: sw},
	} {
		if err := scoreFrame.AddColumn(col); err != nil {
			t.Fatalf("add %s: %v", col.Name, err)
		}
	}
	fx.featuresPath = filepath.Join(dir, "user_features_daily.csv")
	if err := dataset.WriteCSV(fx.featuresPath, scoreFrame); err != nil {
		t.Fatalf("write features: %v", err)
	}
	fx.latestDate = "2026-03-02"
	return fx
}

func TestScoreDefaultsToLatestDate(t *testing.T) {
	fx := newFixture(t)
	res, err := Score(context.Background(), Deps{}, Options{
		FeaturesPath:   fx.featuresPath,
		ModelsDir:      fx.modelsDir,
		PredictionsDir: fx.predictionsDir,
		TopK:           5,
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.AsOfDate != fx.latestDate {
		t.Fatalf("scored %s, want latest %s", res.AsOfDate, fx.latestDate)
	}
	if res.Rows != 20 {
		t.Fatalf("scored %d rows, want the 20 rows of that day", res.Rows)
	}

	out, err := dataset.ReadCSV(res.OutputPath, nil)
	if err != nil {
		t.Fatalf("read predictions: %v", err)
	}
	risk, err := out.NumericValues("churn_risk")
	if err != nil {
		t.Fatalf("churn_risk column: %v", err)
	}
	for i := 1; i < len(risk); i++ {
		if risk[i] > risk[i-1] {
			t.Fatalf("rows not sorted by descending risk at %d: %v > %v", i, risk[i], risk[i-1])
		}
	}
	rank, err := out.NumericValues("risk_rank")
	if err != nil {
		t.Fatalf("risk_rank column: %v", err)
	}
	for i, r := range rank {
		if int(r) != i+1 {
			t.Fatalf("risk_rank[%d] = %v, want %d", i, r, i+1)
		}
	}

	preview, err := dataset.ReadCSV(res.PreviewPath, nil)
	if err != nil {
		t.Fatalf("read preview: %v", err)
	}
	if preview.NumRows() != 5 {
		t.Fatalf("preview has %d rows, want 5", preview.NumRows())
	}
}

func TestScoreRequestedDate(t *testing.T) {
	fx := newFixture(t)
	res, err := Score(context.Background(), Deps{}, Options{
		FeaturesPath:   fx.featuresPath,
		ModelsDir:      fx.modelsDir,
		PredictionsDir: fx.predictionsDir,
		AsOfDate:       "2026-03-01",
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.AsOfDate != "2026-03-01" {
		t.Fatalf("scored %s, want requested day", res.AsOfDate)
	}
	if res.PreviewPath != "" {
		t.Fatal("preview written with TopK disabled")
	}
}

func TestScoreUnknownDateFails(t *testing.T) {
	fx := newFixture(t)
	_, err := Score(context.Background(), Deps{}, Options{
		FeaturesPath:   fx.featuresPath,
		ModelsDir:      fx.modelsDir,
		PredictionsDir: fx.predictionsDir,
		AsOfDate:       "1999-01-01",
	})
	if !errors.Is(err, domain.ErrInputMissing) {
		t.Fatalf("want ErrInputMissing, got %v", err)
	}
}

func TestScoreMissingInputs(t *testing.T) {
	fx := newFixture(t)

	_, err := Score(context.Background(), Deps{}, Options{
		FeaturesPath:   filepath.Join(t.TempDir(), "nope.csv"),
		ModelsDir:      fx.modelsDir,
		PredictionsDir: fx.predictionsDir,
	})
	if !errors.Is(err, domain.ErrInputMissing) {
		t.Fatalf("missing features: want ErrInputMissing, got %v", err)
	}

	emptyModels := t.TempDir()
	_, err = Score(context.Background(), Deps{}, Options{
		FeaturesPath:   fx.featuresPath,
		ModelsDir:      emptyModels,
		PredictionsDir: fx.predictionsDir,
	})
	if err == nil {
		t.Fatal("want error when production artifact is absent")
	}
	if _, statErr := os.Stat(fx.predictionsDir); !os.IsNotExist(statErr) {
		t.Fatal("failed run must not create prediction outputs")
	}
}
