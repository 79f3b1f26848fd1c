package training

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
)

// Strategy is the closed set of imbalance treatments. Whatever is chosen
// runs inside the training partition only; the test side is never touched.
type Strategy string

const (
	// StrategyNone fits the baseline model on the data as-is.
	StrategyNone Strategy = "none"
	// StrategyClassWeight reweights samples inversely to class frequency.
	StrategyClassWeight Strategy = "class_weight"
	// StrategySMOTE fabricates synthetic minority rows by interpolating
	// between a minority sample and one of its nearest minority neighbors.
	StrategySMOTE Strategy = "smote"
	// StrategyBoosted swaps in the tree ensemble, which handles imbalance
	// and one-hot categoricals natively.
	StrategyBoosted Strategy = "boosted"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyClassWeight:
		return StrategyClassWeight, nil
	case StrategyNone:
		return StrategyNone, nil
	case StrategySMOTE:
		return StrategySMOTE, nil
	case StrategyBoosted:
		return StrategyBoosted, nil
	}
	return "", fmt.Errorf("training: unknown imbalance strategy %q", s)
}

// Rebalancer transforms the training matrix before fitting. The no-op
// default keeps strategies that work through weights or the model itself on
// the same code path.
type Rebalancer interface {
	Rebalance(X *Matrix, y []int) (*Matrix, []int, error)
}

type noopRebalancer struct{}

func (noopRebalancer) Rebalance(X *Matrix, y []int) (*Matrix, []int, error) {
	return X, y, nil
}

// plan resolves a strategy into its three moving parts: the resampler, the
// per-sample weights, and the model to fit.
type plan struct {
	rebalancer Rebalancer
	weights    func(y []int) []float64
	model      func(maxIter int) Classifier
}

func planFor(strategy Strategy, seed int64) (plan, error) {
	logreg := func(maxIter int) Classifier { return NewLogisticRegression(maxIter) }
	switch strategy {
	case StrategyNone:
		return plan{rebalancer: noopRebalancer{}, model: logreg}, nil
	case StrategyClassWeight:
		return plan{rebalancer: noopRebalancer{}, weights: balancedWeights, model: logreg}, nil
	case StrategySMOTE:
		return plan{rebalancer: &smote{K: 5, rng: rand.New(rand.NewSource(seed))}, model: logreg}, nil
	case StrategyBoosted:
		return plan{rebalancer: noopRebalancer{}, model: func(int) Classifier { return NewGradientBoosted() }}, nil
	}
	return plan{}, fmt.Errorf("training: unknown imbalance strategy %q", strategy)
}

// balancedWeights gives each class total weight n/2, i.e. w_c = n/(2*n_c).
func balancedWeights(y []int) []float64 {
	var pos int
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	neg := len(y) - pos
	if pos == 0 || neg == 0 {
		return nil
	}
	wPos := float64(len(y)) / (2 * float64(pos))
	wNeg := float64(len(y)) / (2 * float64(neg))
	out := make([]float64, len(y))
	for i, v := range y {
		if v == 1 {
			out[i] = wPos
		} else {
			out[i] = wNeg
		}
	}
	return out
}

// smote oversamples the minority class up to parity by interpolating between
// a minority row and one of its K nearest minority neighbors. Interpolation,
// never duplication: with fewer than two minority rows it leaves the data
// untouched.
type smote struct {
	K   int
	rng *rand.Rand
}

func (s *smote) Rebalance(X *Matrix, y []int) (*Matrix, []int, error) {
	var minority, majority []int
	for i, v := range y {
		if v == 1 {
			minority = append(minority, i)
		} else {
			majority = append(majority, i)
		}
	}
	minClass := 1
	if len(majority) < len(minority) {
		minority, majority = majority, minority
		minClass = 0
	}
	need := len(majority) - len(minority)
	if need <= 0 || len(minority) < 2 {
		return X, y, nil
	}

	k := s.K
	if k > len(minority)-1 {
		k = len(minority) - 1
	}
	neighbors := nearestMinorityNeighbors(X, minority, k)

	rows := append([][]float64(nil), X.Rows...)
	labels := append([]int(nil), y...)
	for n := 0; n < need; n++ {
		mi := s.rng.Intn(len(minority))
		base := X.Rows[minority[mi]]
		nb := X.Rows[neighbors[mi][s.rng.Intn(len(neighbors[mi]))]]
		u := s.rng.Float64()
		synth := make([]float64, len(base))
		for j := range base {
			synth[j] = base[j] + u*(nb[j]-base[j])
		}
		rows = append(rows, synth)
		labels = append(labels, minClass)
	}
	return &Matrix{FeatureNames: X.FeatureNames, Rows: rows}, labels, nil
}

// nearestMinorityNeighbors returns, per minority row, the indices (into
// X.Rows) of its k nearest minority neighbors by euclidean distance.
func nearestMinorityNeighbors(X *Matrix, minority []int, k int) [][]int {
	type distIdx struct {
		d   float64
		idx int
	}
	out := make([][]int, len(minority))
	for a, i := range minority {
		dists := make([]distIdx, 0, len(minority)-1)
		for b, j := range minority {
			if a == b {
				continue
			}
			dists = append(dists, distIdx{d: sqDist(X.Rows[i], X.Rows[j]), idx: j})
		}
		sort.Slice(dists, func(x, y int) bool { return dists[x].d < dists[y].d })
		nn := make([]int, 0, k)
		for n := 0; n < k && n < len(dists); n++ {
			nn = append(nn, dists[n].idx)
		}
		out[a] = nn
	}
	return out
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	if math.IsNaN(s) {
		return math.Inf(1)
	}
	return s
}
