package training

import (
	"fmt"
	"math"
	"sort"
)

// TreeNode is one node of a boosted regression tree. Leaves carry the Newton
// step value in log-odds space.
type TreeNode struct {
	Leaf      bool      `json:"leaf"`
	Value     float64   `json:"value,omitempty"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
}

// GradientBoosted is a gradient-boosted tree ensemble on logistic loss. Trees
// split standardized features, so it handles the one-hot categoricals and
// skewed counters natively, and the loss-weighted leaves absorb class
// imbalance without resampling.
type GradientBoosted struct {
	Trees     []*TreeNode `json:"trees"`
	BaseScore float64     `json:"base_score"`

	LearningRate  float64 `json:"learning_rate"`
	MaxTrees      int     `json:"max_trees"`
	MaxDepth      int     `json:"max_depth"`
	MinLeaf       int     `json:"min_leaf"`
	Lambda        float64 `json:"lambda"`
	MaxThresholds int     `json:"max_thresholds"`
}

func NewGradientBoosted() *GradientBoosted {
	return &GradientBoosted{
		LearningRate:  0.08,
		MaxTrees:      150,
		MaxDepth:      6,
		MinLeaf:       20,
		Lambda:        1.0,
		MaxThresholds: 16,
	}
}

func (m *GradientBoosted) Type() string { return "gradient_boosted_trees" }

// Converged is always true: boosting runs a fixed number of rounds rather
// than iterating to a gradient tolerance.
func (m *GradientBoosted) Converged() bool { return true }

func (m *GradientBoosted) Fit(X *Matrix, y []int, sampleWeight []float64) error {
	n := X.NumRows()
	if n == 0 {
		return fmt.Errorf("gbdt: empty training matrix")
	}
	if len(y) != n {
		return fmt.Errorf("gbdt: %d rows but %d labels", n, len(y))
	}

	var posW, totW float64
	for i := range y {
		w := 1.0
		if sampleWeight != nil {
			w = sampleWeight[i]
		}
		totW += w
		if y[i] == 1 {
			posW += w
		}
	}
	if totW <= 0 {
		return fmt.Errorf("gbdt: non-positive total sample weight")
	}
	prior := posW / totW
	prior = math.Min(math.Max(prior, 1e-6), 1-1e-6)
	m.BaseScore = math.Log(prior / (1 - prior))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = m.BaseScore
	}
	grads := make([]float64, n)
	hess := make([]float64, n)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	m.Trees = m.Trees[:0]
	for t := 0; t < m.MaxTrees; t++ {
		for i := range scores {
			p := sigmoid(scores[i])
			w := 1.0
			if sampleWeight != nil {
				w = sampleWeight[i]
			}
			grads[i] = w * (p - float64(y[i]))
			hess[i] = w * p * (1 - p)
		}
		root := m.buildNode(X, idx, grads, hess, 0)
		if root == nil {
			break
		}
		m.Trees = append(m.Trees, root)
		for i, row := range X.Rows {
			scores[i] += m.LearningRate * evalTree(root, row)
		}
	}
	return nil
}

func (m *GradientBoosted) buildNode(X *Matrix, idx []int, grads, hess []float64, depth int) *TreeNode {
	var g, h float64
	for _, i := range idx {
		g += grads[i]
		h += hess[i]
	}
	leaf := &TreeNode{Leaf: true, Value: -g / (h + m.Lambda)}
	if depth >= m.MaxDepth || len(idx) < 2*m.MinLeaf {
		return leaf
	}

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0
	parentScore := g * g / (h + m.Lambda)

	for f := 0; f < X.NumFeatures(); f++ {
		for _, thr := range m.candidateThresholds(X, idx, f) {
			var gl, hl float64
			nl := 0
			for _, i := range idx {
				if X.Rows[i][f] <= thr {
					gl += grads[i]
					hl += hess[i]
					nl++
				}
			}
			nr := len(idx) - nl
			if nl < m.MinLeaf || nr < m.MinLeaf {
				continue
			}
			gr, hr := g-gl, h-hl
			gain := gl*gl/(hl+m.Lambda) + gr*gr/(hr+m.Lambda) - parentScore
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = thr
			}
		}
	}
	if bestFeature < 0 {
		return leaf
	}

	var left, right []int
	for _, i := range idx {
		if X.Rows[i][bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &TreeNode{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      m.buildNode(X, left, grads, hess, depth+1),
		Right:     m.buildNode(X, right, grads, hess, depth+1),
	}
}

// candidateThresholds returns up to MaxThresholds split points from the
// quantiles of the feature values at this node.
func (m *GradientBoosted) candidateThresholds(X *Matrix, idx []int, f int) []float64 {
	vals := make([]float64, 0, len(idx))
	for _, i := range idx {
		vals = append(vals, X.Rows[i][f])
	}
	sort.Float64s(vals)

	out := make([]float64, 0, m.MaxThresholds)
	last := math.NaN()
	for q := 1; q <= m.MaxThresholds; q++ {
		pos := len(vals) * q / (m.MaxThresholds + 1)
		if pos >= len(vals) {
			pos = len(vals) - 1
		}
		v := vals[pos]
		if v != last {
			out = append(out, v)
			last = v
		}
	}
	if len(out) > 0 && out[len(out)-1] == vals[len(vals)-1] {
		// splitting at the max sends everything left; drop it
		out = out[:len(out)-1]
	}
	return out
}

func evalTree(node *TreeNode, row []float64) float64 {
	for !node.Leaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

func (m *GradientBoosted) PredictProba(X *Matrix) []float64 {
	out := make([]float64, X.NumRows())
	for i, row := range X.Rows {
		score := m.BaseScore
		for _, tree := range m.Trees {
			score += m.LearningRate * evalTree(tree, row)
		}
		out[i] = sigmoid(score)
	}
	return out
}
