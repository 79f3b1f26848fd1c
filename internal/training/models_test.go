package training

import (
	"math"
	"math/rand"
	"testing"
)

// separable synthetic data: positives live around +2, negatives around -2 on
// the first feature.
func separableData(n int, rng *rand.Rand) (*Matrix, []int) {
	rows := make([][]float64, n)
	y := make([]int, n)
	for i := range rows {
		label := i % 2
		center := -2.0
		if label == 1 {
			center = 2.0
		}
		rows[i] = []float64{center + rng.NormFloat64()*0.5, rng.NormFloat64()}
		y[i] = label
	}
	return &Matrix{FeatureNames: []string{"a", "b"}, Rows: rows}, y
}

func TestLogisticRegressionLearnsSeparableData(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	X, y := separableData(400, rng)

	m := NewLogisticRegression(2000)
	if err := m.Fit(X, y, nil); err != nil {
		t.Fatalf("fit: %v", err)
	}
	proba := m.PredictProba(X)
	correct := 0
	for i, p := range proba {
		pred := 0
		if p >= 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	if acc := float64(correct) / float64(len(y)); acc < 0.95 {
		t.Fatalf("accuracy %v on separable data", acc)
	}
	if m.Weights[0] <= 0 {
		t.Fatalf("first feature weight should be positive, got %v", m.Weights[0])
	}
}

func TestLogisticRegressionConvergenceFlag(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	X, y := separableData(100, rng)

	tiny := NewLogisticRegression(1)
	if err := tiny.Fit(X, y, nil); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if tiny.Converged() {
		t.Fatal("one iteration cannot converge on this data")
	}
	if tiny.IterRun != 1 {
		t.Fatalf("iterations run %d, want 1", tiny.IterRun)
	}
}

func TestLogisticRegressionSampleWeights(t *testing.T) {
	// 9:1 imbalance; balanced weights should pull the decision boundary so
	// that minority points near their center are still classified positive
	rng := rand.New(rand.NewSource(3))
	n := 300
	rows := make([][]float64, n)
	y := make([]int, n)
	for i := range rows {
		if i%10 == 0 {
			y[i] = 1
			rows[i] = []float64{1.5 + rng.NormFloat64()*0.7}
		} else {
			y[i] = 0
			rows[i] = []float64{-0.5 + rng.NormFloat64()*0.7}
		}
	}
	X := &Matrix{FeatureNames: []string{"a"}, Rows: rows}

	weighted := NewLogisticRegression(3000)
	if err := weighted.Fit(X, y, balancedWeights(y)); err != nil {
		t.Fatalf("fit: %v", err)
	}
	unweighted := NewLogisticRegression(3000)
	if err := unweighted.Fit(X, y, nil); err != nil {
		t.Fatalf("fit: %v", err)
	}

	probe := &Matrix{FeatureNames: []string{"a"}, Rows: [][]float64{{1.5}}}
	pw := weighted.PredictProba(probe)[0]
	pu := unweighted.PredictProba(probe)[0]
	if pw <= pu {
		t.Fatalf("class weighting should raise minority probability: weighted %v, unweighted %v", pw, pu)
	}
	if pw < 0.5 {
		t.Fatalf("weighted model should classify the minority center positive, got %v", pw)
	}
}

func TestGradientBoostedLearnsNonlinearData(t *testing.T) {
	// XOR-ish pattern no linear model can fit
	rng := rand.New(rand.NewSource(4))
	n := 600
	rows := make([][]float64, n)
	y := make([]int, n)
	for i := range rows {
		a := rng.Float64()*2 - 1
		b := rng.Float64()*2 - 1
		rows[i] = []float64{a, b}
		if a*b > 0 {
			y[i] = 1
		}
	}
	X := &Matrix{FeatureNames: []string{"a", "b"}, Rows: rows}

	m := NewGradientBoosted()
	m.MinLeaf = 5
	if err := m.Fit(X, y, nil); err != nil {
		t.Fatalf("fit: %v", err)
	}
	proba := m.PredictProba(X)
	correct := 0
	for i, p := range proba {
		pred := 0
		if p >= 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	if acc := float64(correct) / float64(len(y)); acc < 0.85 {
		t.Fatalf("accuracy %v on xor data, trees learned nothing", acc)
	}
	if !m.Converged() {
		t.Fatal("boosting always reports converged")
	}
}

func TestGradientBoostedBaseScoreMatchesPrior(t *testing.T) {
	rows := [][]float64{{0}, {0}, {0}, {0}}
	y := []int{1, 0, 0, 0}
	m := NewGradientBoosted()
	m.MaxTrees = 0
	if err := m.Fit(&Matrix{FeatureNames: []string{"a"}, Rows: rows}, y, nil); err != nil {
		t.Fatalf("fit: %v", err)
	}
	want := math.Log(0.25 / 0.75)
	if math.Abs(m.BaseScore-want) > 1e-9 {
		t.Fatalf("base score %v, want %v", m.BaseScore, want)
	}
}
