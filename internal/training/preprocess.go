package training

import (
	"fmt"
	"math"
	"sort"

	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/domain"
)

const (
	labelColumn       = "churn_label"
	futureDaysColumn  = "future_active_days"
	userIDColumn      = "user_id"
	dateColumn        = "as_of_date"
	signupDateColumn  = "signup_date"
	missingFillString = "missing"
)

// excludedColumns never reach the feature matrix: the label itself, the label
// window byproduct, identifiers and raw dates. Identifiers memorize users;
// raw dates and window counts leak the target.
var excludedColumns = []string{
	labelColumn,
	futureDaysColumn,
	userIDColumn,
	dateColumn,
	signupDateColumn,
}

// SplitFeaturesLabel separates the label vector from the feature columns and
// drops the contract-excluded columns regardless of input order.
func SplitFeaturesLabel(f *dataset.Frame) (*dataset.Frame, []int, error) {
	labelCol := f.Column(labelColumn)
	if labelCol == nil {
		return nil, nil, fmt.Errorf("%w: missing %s column", domain.ErrSchemaInvalid, labelColumn)
	}
	if labelCol.Type != dataset.Numeric {
		return nil, nil, fmt.Errorf("%w: %s must be numeric 0/1", domain.ErrSchemaInvalid, labelColumn)
	}
	y := make([]int, len(labelCol.Nums))
	for i, v := range labelCol.Nums {
		if !math.IsNaN(v) && v != 0 {
			y[i] = 1
		}
	}
	return f.Drop(excludedColumns...), y, nil
}

// FeatureSchema declares which feature columns are categorical vs numeric.
// When nil, the preprocessor falls back to the frame's runtime column types.
type FeatureSchema struct {
	Categorical []string
	Numeric     []string
}

// Preprocessor is the fitted transform: categorical columns are
// constant-filled and one-hot encoded (unseen categories encode as all
// zeros), numeric columns are zero-filled and standardized. Fit only ever
// sees the training partition.
type Preprocessor struct {
	CatCols      []string            `json:"cat_cols"`
	NumCols      []string            `json:"num_cols"`
	Categories   map[string][]string `json:"categories"`
	Means        map[string]float64  `json:"means"`
	Stds         map[string]float64  `json:"stds"`
	FeatureNames []string            `json:"feature_names"`
}

func NewPreprocessor(schema *FeatureSchema) *Preprocessor {
	p := &Preprocessor{
		Categories: map[string][]string{},
		Means:      map[string]float64{},
		Stds:       map[string]float64{},
	}
	if schema != nil {
		p.CatCols = append(p.CatCols, schema.Categorical...)
		p.NumCols = append(p.NumCols, schema.Numeric...)
	}
	return p
}

func (p *Preprocessor) Fit(X *dataset.Frame) error {
	if len(p.CatCols) == 0 && len(p.NumCols) == 0 {
		for _, name := range X.ColumnNames() {
			if X.Column(name).Type == dataset.Numeric {
				p.NumCols = append(p.NumCols, name)
			} else {
				p.CatCols = append(p.CatCols, name)
			}
		}
	}

	for _, name := range p.CatCols {
		col := X.Column(name)
		if col == nil || col.Type != dataset.Categorical {
			return fmt.Errorf("%w: categorical column %q missing or mistyped", domain.ErrSchemaInvalid, name)
		}
		seen := map[string]bool{}
		for _, v := range col.Cats {
			if v == "" {
				v = missingFillString
			}
			seen[v] = true
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		p.Categories[name] = cats
	}

	for _, name := range p.NumCols {
		col := X.Column(name)
		if col == nil || col.Type != dataset.Numeric {
			return fmt.Errorf("%w: numeric column %q missing or mistyped", domain.ErrSchemaInvalid, name)
		}
		// impute zero first, then standardize over the imputed values
		var sum float64
		for _, v := range col.Nums {
			if !math.IsNaN(v) {
				sum += v
			}
		}
		n := float64(len(col.Nums))
		mean := 0.0
		if n > 0 {
			mean = sum / n
		}
		var ss float64
		for _, v := range col.Nums {
			x := v
			if math.IsNaN(x) {
				x = 0
			}
			ss += (x - mean) * (x - mean)
		}
		std := 0.0
		if n > 0 {
			std = math.Sqrt(ss / n)
		}
		if std == 0 {
			std = 1
		}
		p.Means[name] = mean
		p.Stds[name] = std
	}

	p.FeatureNames = p.FeatureNames[:0]
	for _, name := range p.CatCols {
		for _, cat := range p.Categories[name] {
			p.FeatureNames = append(p.FeatureNames, name+"="+cat)
		}
	}
	p.FeatureNames = append(p.FeatureNames, p.NumCols...)
	return nil
}

func (p *Preprocessor) Transform(X *dataset.Frame) (*Matrix, error) {
	n := X.NumRows()
	width := len(p.FeatureNames)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, width)
	}

	off := 0
	for _, name := range p.CatCols {
		col := X.Column(name)
		if col == nil || col.Type != dataset.Categorical {
			return nil, fmt.Errorf("%w: categorical column %q missing at transform", domain.ErrSchemaInvalid, name)
		}
		cats := p.Categories[name]
		index := make(map[string]int, len(cats))
		for i, c := range cats {
			index[c] = i
		}
		for r, v := range col.Cats {
			if v == "" {
				v = missingFillString
			}
			// unseen categories stay all-zero instead of failing
			if j, ok := index[v]; ok {
				rows[r][off+j] = 1
			}
		}
		off += len(cats)
	}

	for _, name := range p.NumCols {
		col := X.Column(name)
		if col == nil || col.Type != dataset.Numeric {
			return nil, fmt.Errorf("%w: numeric column %q missing at transform", domain.ErrSchemaInvalid, name)
		}
		mean, std := p.Means[name], p.Stds[name]
		for r, v := range col.Nums {
			x := v
			if math.IsNaN(x) {
				x = 0
			}
			rows[r][off] = (x - mean) / std
		}
		off++
	}

	return &Matrix{FeatureNames: append([]string(nil), p.FeatureNames...), Rows: rows}, nil
}
