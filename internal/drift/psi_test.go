package drift

import (
	"math"
	"testing"
)

// uniformSample returns n evenly spread points, so decile bins derived from
// it each hold exactly a tenth of the mass.
func uniformSample(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) + 0.5
	}
	return out
}

func TestPSIOfSampleAgainstItselfIsZero(t *testing.T) {
	samples := [][]float64{
		uniformSample(1000),
		{1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89},
		{-5, -2, 0, 0.5, 3.25, 7, 12, 40},
	}
	for _, s := range samples {
		if psi := PSI(s, s, 10); math.Abs(psi) > 1e-9 {
			t.Fatalf("PSI(self) = %v, want 0", psi)
		}
	}
}

func TestPSIDetectsLargeShift(t *testing.T) {
	ref := uniformSample(1000)
	shifted := make([]float64, len(ref))
	for i, v := range ref {
		shifted[i] = v + 10000
	}
	if psi := PSI(ref, shifted, 10); psi < 0.25 {
		t.Fatalf("PSI of a fully displaced sample = %v, want >= 0.25", psi)
	}
}

func TestPSIEmptyBinsUseEpsilonFloor(t *testing.T) {
	ref := uniformSample(1000)
	// All current mass in the top decile leaves nine empty bins; the
	// epsilon floor must keep the result finite.
	cur := make([]float64, 100)
	for i := range cur {
		cur[i] = 950
	}
	psi := PSI(ref, cur, 10)
	if math.IsNaN(psi) || math.IsInf(psi, 0) {
		t.Fatalf("PSI with empty bins = %v, want finite", psi)
	}
	if psi < 0.25 {
		t.Fatalf("PSI of a collapsed distribution = %v, want >= 0.25", psi)
	}
}

func TestPSIDegenerateReferenceScoresZero(t *testing.T) {
	constant := []float64{4, 4, 4, 4, 4}
	if psi := PSI(constant, uniformSample(100), 10); psi != 0 {
		t.Fatalf("PSI with constant reference = %v, want 0", psi)
	}
	if psi := PSI(nil, uniformSample(10), 10); psi != 0 {
		t.Fatalf("PSI with empty reference = %v, want 0", psi)
	}
	if psi := PSI(uniformSample(10), nil, 10); psi != 0 {
		t.Fatalf("PSI with empty current = %v, want 0", psi)
	}
}

func TestPSIIgnoresMissingValues(t *testing.T) {
	ref := uniformSample(500)
	withNaN := append([]float64{math.NaN(), math.NaN()}, ref...)
	if psi := PSI(ref, withNaN, 10); math.Abs(psi) > 1e-9 {
		t.Fatalf("PSI after dropping NaNs = %v, want 0", psi)
	}
}

func TestVerdictThresholds(t *testing.T) {
	cases := []struct {
		psi  float64
		want string
	}{
		{0, VerdictNone},
		{0.05, VerdictNone},
		{0.0999, VerdictNone},
		{0.1, VerdictModerate},
		{0.2, VerdictModerate},
		{0.25, VerdictHigh},
		{0.3, VerdictHigh},
		{5, VerdictHigh},
	}
	for _, tc := range cases {
		if got := verdictFor(tc.psi, 0.1, 0.25); got != tc.want {
			t.Fatalf("verdictFor(%v) = %q, want %q", tc.psi, got, tc.want)
		}
	}
}

func TestWorstVerdictWins(t *testing.T) {
	if severity(VerdictHigh) <= severity(VerdictModerate) || severity(VerdictModerate) <= severity(VerdictNone) {
		t.Fatal("severity ordering broken")
	}
}
