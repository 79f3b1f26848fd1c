package training

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/domain"
)

// syntheticTable builds a joined feature+label table: churners have low
// watch minutes, with dates spread over enough days for a date split.
func syntheticTable(t *testing.T, n int) *dataset.Frame {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	userID := make([]float64, n)
	dates := make([]string, n)
	plan := make([]string, n)
	watch := make([]float64, n)
	label := make([]float64, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		userID[i] = float64(i)
		dates[i] = base.AddDate(0, 0, i%25).Format("2006-01-02")
		if rng.Float64() < 0.3 {
			plan[i] = "paid"
		} else {
			plan[i] = "free"
		}
		if rng.Float64() < 0.25 {
			label[i] = 1
			watch[i] = rng.Float64() * 10
		} else {
			watch[i] = 40 + rng.Float64()*60
		}
	}
	f := dataset.NewFrame()
	for _, col := range []*dataset.Column{
		{Name: "user_id", Type: dataset.Numeric, Nums: userID},
		{Name: "as_of_date", Type: dataset.Categorical, Cats: dates},
		{Name: "plan", Type: dataset.Categorical, Cats: plan},
		{Name: "watch_minutes_7d", Type: dataset.Numeric, Nums: watch},
		{Name: "churn_label", Type: dataset.Numeric, Nums: label},
	} {
		if err := f.AddColumn(col); err != nil {
			t.Fatalf("add %s: %v", col.Name, err)
		}
	}
	return f
}

func trainOpts(t *testing.T, strategy Strategy) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		TestFraction:      0.2,
		Strategy:          strategy,
		DecisionThreshold: 0.5,
		MaxIter:           2000,
		Seed:              42,
		ModelsDir:         filepath.Join(dir, "models"),
		MetricsDir:        filepath.Join(dir, "metrics"),
		Now:               time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTrainEndToEnd(t *testing.T) {
	table := syntheticTable(t, 600)
	opts := trainOpts(t, StrategyClassWeight)

	res, err := Train(context.Background(), Deps{}, table, opts)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	if res.Document.PRAUC < 0.8 {
		t.Fatalf("pr_auc %v on cleanly separable synthetic data", res.Document.PRAUC)
	}
	if res.Document.ROCAUC < 0.8 {
		t.Fatalf("roc_auc %v", res.Document.ROCAUC)
	}
	if res.Document.TrainRows == 0 || res.Document.TestRows == 0 {
		t.Fatal("empty partition")
	}
	if res.Document.ChurnRateTrain <= 0 || res.Document.ChurnRateTrain >= 1 {
		t.Fatalf("churn_rate_train %v", res.Document.ChurnRateTrain)
	}

	// artifact + sidecar + metrics all exist
	if _, err := os.Stat(res.ArtifactPath); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	sidecar := res.ArtifactPath[:len(res.ArtifactPath)-len(".json")] + ".features.json"
	if _, err := os.Stat(sidecar); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	if _, err := os.Stat(res.MetricsPath); err != nil {
		t.Fatalf("metrics missing: %v", err)
	}

	// artifact round-trips and scores raw frames
	art, err := LoadArtifact(res.ArtifactPath)
	if err != nil {
		t.Fatalf("load artifact: %v", err)
	}
	X, _, err := SplitFeaturesLabel(table)
	if err != nil {
		t.Fatalf("features: %v", err)
	}
	proba, err := art.PredictProba(X)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(proba) != table.NumRows() {
		t.Fatalf("got %d probabilities for %d rows", len(proba), table.NumRows())
	}
	for _, p := range proba {
		if p < 0 || p > 1 {
			t.Fatalf("probability %v out of range", p)
		}
	}
}

func TestTrainArtifactsAreImmutable(t *testing.T) {
	table := syntheticTable(t, 300)
	opts := trainOpts(t, StrategyNone)

	first, err := Train(context.Background(), Deps{}, table, opts)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	opts.Now = opts.Now.Add(time.Second)
	second, err := Train(context.Background(), Deps{}, table, opts)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if first.ArtifactPath == second.ArtifactPath {
		t.Fatal("second run overwrote the first artifact")
	}
	if _, err := os.Stat(first.ArtifactPath); err != nil {
		t.Fatalf("first artifact gone: %v", err)
	}
}

func TestTrainStrategies(t *testing.T) {
	table := syntheticTable(t, 400)
	for _, strategy := range []Strategy{StrategyNone, StrategyClassWeight, StrategySMOTE, StrategyBoosted} {
		opts := trainOpts(t, strategy)
		res, err := Train(context.Background(), Deps{}, table, opts)
		if err != nil {
			t.Fatalf("strategy %s: %v", strategy, err)
		}
		wantModel := "logistic_regression"
		if strategy == StrategyBoosted {
			wantModel = "gradient_boosted_trees"
		}
		if res.Document.ModelType != wantModel {
			t.Fatalf("strategy %s picked model %s", strategy, res.Document.ModelType)
		}
	}
}

func TestTrainMissingLabelColumnIsFatalBeforeWrites(t *testing.T) {
	f := dataset.NewFrame()
	dates := make([]string, 30)
	vals := make([]float64, 30)
	for i := range dates {
		dates[i] = fmt.Sprintf("2026-01-%02d", i%10+1)
		vals[i] = float64(i)
	}
	_ = f.AddColumn(&dataset.Column{Name: "as_of_date", Type: dataset.Categorical, Cats: dates})
	_ = f.AddColumn(&dataset.Column{Name: "x", Type: dataset.Numeric, Nums: vals})

	opts := trainOpts(t, StrategyNone)
	_, err := Train(context.Background(), Deps{}, f, opts)
	if !errors.Is(err, domain.ErrSchemaInvalid) {
		t.Fatalf("want ErrSchemaInvalid, got %v", err)
	}
	if _, err := os.Stat(opts.ModelsDir); !os.IsNotExist(err) {
		t.Fatal("fatal run must not create partial outputs")
	}
}

func TestTrainDegenerateDates(t *testing.T) {
	f := dataset.NewFrame()
	_ = f.AddColumn(&dataset.Column{Name: "as_of_date", Type: dataset.Categorical, Cats: []string{"2026-01-01", "2026-01-01"}})
	_ = f.AddColumn(&dataset.Column{Name: "x", Type: dataset.Numeric, Nums: []float64{1, 2}})
	_ = f.AddColumn(&dataset.Column{Name: "churn_label", Type: dataset.Numeric, Nums: []float64{0, 1}})

	_, err := Train(context.Background(), Deps{}, f, trainOpts(t, StrategyNone))
	if !errors.Is(err, domain.ErrDegenerateSplit) {
		t.Fatalf("want ErrDegenerateSplit, got %v", err)
	}
}
