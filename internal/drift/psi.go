package drift

import (
	"math"
	"sort"
)

// pctFloor keeps empty bins from producing NaN or Inf in the log ratio.
const pctFloor = 1e-6

// PSI computes the Population Stability Index of actual against expected:
// bin edges are quantiles of the expected sample, applied identically to
// both sides, then sum((a - e) * ln(a / e)) over bin fractions.
//
// A degenerate expected distribution (fewer than 3 distinct edges, so no
// real binning is possible) scores 0 rather than erroring: a near-constant
// reference feature carries no stability signal.
func PSI(expected, actual []float64, buckets int) float64 {
	expected = dropNaN(expected)
	actual = dropNaN(actual)
	if len(expected) == 0 || len(actual) == 0 {
		return 0
	}
	if buckets <= 0 {
		buckets = 10
	}

	edges := quantileEdges(expected, buckets)
	if len(edges) < 3 {
		return 0
	}

	ePct := binFractions(expected, edges)
	aPct := binFractions(actual, edges)

	psi := 0.0
	for i := range ePct {
		psi += (aPct[i] - ePct[i]) * math.Log(aPct[i]/ePct[i])
	}
	return psi
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// quantileEdges returns the deduplicated quantile edges of the sample at
// fractions 0, 1/buckets, ..., 1 using linear interpolation between order
// statistics.
func quantileEdges(sample []float64, buckets int) []float64 {
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	edges := make([]float64, 0, buckets+1)
	for k := 0; k <= buckets; k++ {
		q := float64(k) / float64(buckets)
		v := quantileSorted(sorted, q)
		if len(edges) == 0 || v > edges[len(edges)-1] {
			edges = append(edges, v)
		}
	}
	return edges
}

func quantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	idx := int(math.Floor(pos))
	frac := pos - float64(idx)
	if idx+1 >= n {
		return sorted[n-1]
	}
	return sorted[idx] + (sorted[idx+1]-sorted[idx])*frac
}

// binFractions histograms the sample into the half-open bins defined by
// edges (the last bin includes its upper edge), out-of-range values landing
// in the outermost bins, and returns per-bin fractions clipped to pctFloor.
func binFractions(sample []float64, edges []float64) []float64 {
	bins := len(edges) - 1
	counts := make([]int, bins)
	total := 0
	for _, v := range sample {
		// bin i covers [edges[i], edges[i+1]); the last bin also includes
		// its upper edge, and out-of-range values clamp to the ends.
		idx := sort.Search(len(edges), func(i int) bool { return edges[i] > v }) - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
		total++
	}
	if total == 0 {
		total = 1
	}
	out := make([]float64, bins)
	for i, c := range counts {
		pct := float64(c) / float64(total)
		if pct < pctFloor {
			pct = pctFloor
		}
		out[i] = pct
	}
	return out
}
