package training

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/domain"
	"github.com/churnflow/churnflow/internal/platform/fsutil"
	"github.com/churnflow/churnflow/internal/platform/logger"
	"github.com/churnflow/churnflow/internal/repos"
	"github.com/churnflow/churnflow/internal/split"
)

type Deps struct {
	Log *logger.Logger

	// Runs/DB record the run in the registry when configured; both nil is
	// fine, artifacts on disk remain the source of truth.
	Runs repos.TrainingRunRepo
	DB   *gorm.DB
}

type Options struct {
	TestFraction      float64
	Strategy          Strategy
	DecisionThreshold float64
	MaxIter           int
	Seed              int64

	// Schema optionally declares categorical vs numeric feature columns;
	// nil falls back to runtime column types.
	Schema *FeatureSchema

	ModelsDir  string
	MetricsDir string

	// Now is injectable for tests; zero means time.Now.
	Now time.Time
}

// MetricsDocument is the JSON written next to every artifact. Callers must
// check Converged before promoting a run.
type MetricsDocument struct {
	ModelType      string    `json:"model_type"`
	Artifact       string    `json:"artifact"`
	CreatedAt      time.Time `json:"created_at"`
	Strategy       string    `json:"imbalance_strategy"`
	TrainRows      int       `json:"train_rows"`
	TestRows       int       `json:"test_rows"`
	ChurnRateTrain float64   `json:"churn_rate_train"`
	ChurnRateTest  float64   `json:"churn_rate_test"`
	Converged      bool      `json:"converged"`

	PRAUC                float64                 `json:"pr_auc"`
	ROCAUC               float64                 `json:"roc_auc"`
	ConfusionMatrix      [2][2]int               `json:"confusion_matrix"`
	ClassificationReport map[string]ClassMetrics `json:"classification_report"`
	PRCurve              PRCurveSample           `json:"pr_curve_sample"`
}

type Result struct {
	ArtifactPath string
	MetricsPath  string
	Document     MetricsDocument
}

// Train runs the full pipeline on a joined feature+label table: temporal
// split, preprocessing fit on the train side only, imbalance treatment, fit
// with one convergence retry, evaluation on the held-out tail, and immutable
// artifact persistence.
func Train(ctx context.Context, deps Deps, table *dataset.Frame, opts Options) (Result, error) {
	var out Result
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.TestFraction <= 0 || opts.TestFraction >= 1 {
		opts.TestFraction = 0.2
	}
	if opts.DecisionThreshold <= 0 || opts.DecisionThreshold >= 1 {
		opts.DecisionThreshold = 0.5
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 2000
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyClassWeight
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	ds, err := split.ByDate(table, dateColumn, opts.TestFraction)
	if err != nil {
		return out, err
	}

	XtrainFrame, ytrain, err := SplitFeaturesLabel(ds.Train)
	if err != nil {
		return out, err
	}
	XtestFrame, ytest, err := SplitFeaturesLabel(ds.Test)
	if err != nil {
		return out, err
	}

	pre := NewPreprocessor(opts.Schema)
	if err := pre.Fit(XtrainFrame); err != nil {
		return out, err
	}
	Xtrain, err := pre.Transform(XtrainFrame)
	if err != nil {
		return out, err
	}
	Xtest, err := pre.Transform(XtestFrame)
	if err != nil {
		return out, err
	}

	p, err := planFor(opts.Strategy, opts.Seed)
	if err != nil {
		return out, err
	}
	Xfit, yfit, err := p.rebalancer.Rebalance(Xtrain, ytrain)
	if err != nil {
		return out, err
	}
	var weights []float64
	if p.weights != nil {
		weights = p.weights(yfit)
	}

	model := p.model(opts.MaxIter)
	if err := model.Fit(Xfit, yfit, weights); err != nil {
		return out, err
	}
	if !model.Converged() {
		if deps.Log != nil {
			deps.Log.Warn("optimizer did not converge, retrying with doubled iteration budget",
				"model", model.Type(), "max_iter", opts.MaxIter)
		}
		model = p.model(opts.MaxIter * 2)
		if err := model.Fit(Xfit, yfit, weights); err != nil {
			return out, err
		}
		if !model.Converged() && deps.Log != nil {
			deps.Log.Warn("optimizer still unconverged, keeping best-effort fit", "model", model.Type())
		}
	}

	eval := Evaluate(model.PredictProba(Xtest), ytest, opts.DecisionThreshold)

	if err := fsutil.EnsureDir(opts.ModelsDir); err != nil {
		return out, err
	}
	if err := fsutil.EnsureDir(opts.MetricsDir); err != nil {
		return out, err
	}

	artifact, err := newArtifact(pre, model, now)
	if err != nil {
		return out, err
	}
	prefix := modelPrefix(opts.Strategy)
	artifactPath, err := SaveArtifact(opts.ModelsDir, prefix, artifact)
	if err != nil {
		return out, err
	}

	doc := MetricsDocument{
		ModelType:            model.Type(),
		Artifact:             filepath.Base(artifactPath),
		CreatedAt:            artifact.CreatedAt,
		Strategy:             string(opts.Strategy),
		TrainRows:            ds.Train.NumRows(),
		TestRows:             ds.Test.NumRows(),
		ChurnRateTrain:       rate(ytrain),
		ChurnRateTest:        rate(ytest),
		Converged:            model.Converged(),
		PRAUC:                eval.PRAUC,
		ROCAUC:               eval.ROCAUC,
		ConfusionMatrix:      eval.ConfusionMatrix,
		ClassificationReport: eval.ClassificationReport,
		PRCurve:              eval.PRCurve,
	}
	metricsName := strings.TrimSuffix(filepath.Base(artifactPath), ".json") + ".metrics.json"
	metricsPath := filepath.Join(opts.MetricsDir, metricsName)
	if err := fsutil.WriteJSON(metricsPath, doc); err != nil {
		return out, err
	}

	if deps.Runs != nil {
		params, _ := json.Marshal(map[string]any{
			"test_fraction":      opts.TestFraction,
			"imbalance_strategy": string(opts.Strategy),
			"decision_threshold": opts.DecisionThreshold,
			"max_iter":           opts.MaxIter,
			"seed":               opts.Seed,
		})
		run := &domain.TrainingRun{
			ModelType:      doc.ModelType,
			ArtifactName:   doc.Artifact,
			PRAUC:          doc.PRAUC,
			ROCAUC:         doc.ROCAUC,
			TrainRows:      doc.TrainRows,
			TestRows:       doc.TestRows,
			ChurnRateTrain: doc.ChurnRateTrain,
			Converged:      doc.Converged,
			Params:         datatypes.JSON(params),
			CreatedAt:      artifact.CreatedAt,
		}
		if err := deps.Runs.Create(ctx, deps.DB, run); err != nil && deps.Log != nil {
			deps.Log.Warn("training run registry write failed", "error", err.Error())
		}
	}

	if deps.Log != nil {
		deps.Log.Info("training complete",
			"model", doc.ModelType,
			"artifact", doc.Artifact,
			"pr_auc", doc.PRAUC,
			"roc_auc", doc.ROCAUC,
			"train_rows", doc.TrainRows,
			"test_rows", doc.TestRows,
			"converged", doc.Converged)
	}

	out.ArtifactPath = artifactPath
	out.MetricsPath = metricsPath
	out.Document = doc
	return out, nil
}

func modelPrefix(s Strategy) string {
	if s == StrategyBoosted {
		return "candidate_gbdt"
	}
	return "baseline_logreg"
}

func rate(y []int) float64 {
	if len(y) == 0 {
		return 0
	}
	var pos int
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	return float64(pos) / float64(len(y))
}
