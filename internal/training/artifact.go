package training

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/domain"
	"github.com/churnflow/churnflow/internal/platform/fsutil"
)

// Artifact is the serialized fitted pipeline: the preprocessor plus exactly
// one model. Artifacts are immutable once written; later runs supersede them
// with new timestamped files, never in place.
type Artifact struct {
	ModelType    string    `json:"model_type"`
	CreatedAt    time.Time `json:"created_at"`
	FeatureNames []string  `json:"feature_names"`

	Preprocessor *Preprocessor       `json:"preprocessor"`
	LogReg       *LogisticRegression `json:"logreg,omitempty"`
	Boosted      *GradientBoosted    `json:"boosted,omitempty"`
}

// Sidecar lists the exact feature column order used at fit time, required
// for correct inference-time alignment, plus the creation timestamp.
type Sidecar struct {
	Artifact     string    `json:"artifact"`
	ModelType    string    `json:"model_type"`
	FeatureNames []string  `json:"feature_names"`
	CreatedAt    time.Time `json:"created_at"`
}

func newArtifact(pre *Preprocessor, model Classifier, now time.Time) (*Artifact, error) {
	a := &Artifact{
		ModelType:    model.Type(),
		CreatedAt:    now.UTC(),
		FeatureNames: append([]string(nil), pre.FeatureNames...),
		Preprocessor: pre,
	}
	switch m := model.(type) {
	case *LogisticRegression:
		a.LogReg = m
	case *GradientBoosted:
		a.Boosted = m
	default:
		return nil, fmt.Errorf("training: unsupported model type %T", model)
	}
	return a, nil
}

func (a *Artifact) model() (Classifier, error) {
	switch {
	case a.LogReg != nil:
		return a.LogReg, nil
	case a.Boosted != nil:
		return a.Boosted, nil
	}
	return nil, fmt.Errorf("training: artifact %s carries no model", a.ModelType)
}

// PredictProba runs the full pipeline on raw feature columns.
func (a *Artifact) PredictProba(X *dataset.Frame) ([]float64, error) {
	m, err := a.model()
	if err != nil {
		return nil, err
	}
	mat, err := a.Preprocessor.Transform(X)
	if err != nil {
		return nil, err
	}
	return m.PredictProba(mat), nil
}

// ArtifactStamp formats the timestamp baked into artifact filenames.
func ArtifactStamp(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// SaveArtifact writes "<prefix>_<stamp>.json" and its feature sidecar
// "<prefix>_<stamp>.features.json". Returns the artifact path.
func SaveArtifact(dir, prefix string, a *Artifact) (string, error) {
	name := fmt.Sprintf("%s_%s.json", prefix, ArtifactStamp(a.CreatedAt))
	path := filepath.Join(dir, name)
	if err := fsutil.WriteJSON(path, a); err != nil {
		return "", err
	}
	side := Sidecar{
		Artifact:     name,
		ModelType:    a.ModelType,
		FeatureNames: a.FeatureNames,
		CreatedAt:    a.CreatedAt,
	}
	sidePath := strings.TrimSuffix(path, ".json") + ".features.json"
	if err := fsutil.WriteJSON(sidePath, side); err != nil {
		return "", err
	}
	return path, nil
}

func LoadArtifact(path string) (*Artifact, error) {
	var a Artifact
	if err := fsutil.ReadJSON(path, &a); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInputMissing, path)
	}
	if a.Preprocessor == nil {
		return nil, fmt.Errorf("%w: %s has no preprocessor", domain.ErrSchemaInvalid, path)
	}
	if _, err := a.model(); err != nil {
		return nil, fmt.Errorf("%w: %s has no model", domain.ErrSchemaInvalid, path)
	}
	return &a, nil
}
