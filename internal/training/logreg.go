package training

import (
	"fmt"
	"math"
)

// Classifier is a fitted binary probability model. Fit may be called again
// with a larger iteration budget when the optimizer did not converge.
type Classifier interface {
	Fit(X *Matrix, y []int, sampleWeight []float64) error
	PredictProba(X *Matrix) []float64
	Converged() bool
	Type() string
}

// LogisticRegression is an L2-regularized model fit by full-batch gradient
// descent. All fitted state is exported so artifacts serialize to JSON.
type LogisticRegression struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`

	LearningRate float64 `json:"learning_rate"`
	MaxIter      int     `json:"max_iter"`
	Tol          float64 `json:"tol"`
	L2           float64 `json:"l2"`

	DidConverge bool `json:"converged"`
	IterRun     int  `json:"iterations_run"`
}

func NewLogisticRegression(maxIter int) *LogisticRegression {
	if maxIter <= 0 {
		maxIter = 2000
	}
	return &LogisticRegression{
		LearningRate: 0.5,
		MaxIter:      maxIter,
		Tol:          1e-5,
		L2:           1e-4,
	}
}

func (m *LogisticRegression) Type() string    { return "logistic_regression" }
func (m *LogisticRegression) Converged() bool { return m.DidConverge }

func (m *LogisticRegression) Fit(X *Matrix, y []int, sampleWeight []float64) error {
	n := X.NumRows()
	if n == 0 {
		return fmt.Errorf("logreg: empty training matrix")
	}
	if len(y) != n {
		return fmt.Errorf("logreg: %d rows but %d labels", n, len(y))
	}
	d := X.NumFeatures()
	m.Weights = make([]float64, d)
	m.Bias = 0
	m.DidConverge = false

	var totalWeight float64
	if sampleWeight == nil {
		totalWeight = float64(n)
	} else {
		if len(sampleWeight) != n {
			return fmt.Errorf("logreg: %d rows but %d sample weights", n, len(sampleWeight))
		}
		for _, w := range sampleWeight {
			totalWeight += w
		}
	}
	if totalWeight <= 0 {
		return fmt.Errorf("logreg: non-positive total sample weight")
	}

	grad := make([]float64, d)
	for iter := 0; iter < m.MaxIter; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradBias float64
		for i, row := range X.Rows {
			p := sigmoid(dot(m.Weights, row) + m.Bias)
			g := p - float64(y[i])
			if sampleWeight != nil {
				g *= sampleWeight[i]
			}
			for j, x := range row {
				grad[j] += g * x
			}
			gradBias += g
		}
		maxGrad := math.Abs(gradBias / totalWeight)
		for j := range grad {
			grad[j] = grad[j]/totalWeight + m.L2*m.Weights[j]
			if a := math.Abs(grad[j]); a > maxGrad {
				maxGrad = a
			}
		}
		for j := range m.Weights {
			m.Weights[j] -= m.LearningRate * grad[j]
		}
		m.Bias -= m.LearningRate * gradBias / totalWeight
		m.IterRun = iter + 1
		if maxGrad < m.Tol {
			m.DidConverge = true
			break
		}
	}
	return nil
}

func (m *LogisticRegression) PredictProba(X *Matrix) []float64 {
	out := make([]float64, X.NumRows())
	for i, row := range X.Rows {
		out[i] = sigmoid(dot(m.Weights, row) + m.Bias)
	}
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func dot(w, x []float64) float64 {
	var s float64
	for i := range w {
		s += w[i] * x[i]
	}
	return s
}
