package training

import (
	"math"
	"testing"
)

func TestEvaluatePerfectRanking(t *testing.T) {
	proba := []float64{0.9, 0.8, 0.2, 0.1}
	y := []int{1, 1, 0, 0}
	e := Evaluate(proba, y, 0.5)
	if e.ROCAUC != 1 {
		t.Fatalf("roc_auc %v, want 1", e.ROCAUC)
	}
	if e.PRAUC != 1 {
		t.Fatalf("pr_auc %v, want 1", e.PRAUC)
	}
	want := [2][2]int{{2, 0}, {0, 2}}
	if e.ConfusionMatrix != want {
		t.Fatalf("confusion %v, want %v", e.ConfusionMatrix, want)
	}
	for _, class := range []string{"0", "1"} {
		m := e.ClassificationReport[class]
		if m.Precision != 1 || m.Recall != 1 || m.F1 != 1 || m.Support != 2 {
			t.Fatalf("class %s report %+v", class, m)
		}
	}
}

func TestEvaluateInvertedRanking(t *testing.T) {
	proba := []float64{0.1, 0.2, 0.8, 0.9}
	y := []int{1, 1, 0, 0}
	e := Evaluate(proba, y, 0.5)
	if e.ROCAUC != 0 {
		t.Fatalf("roc_auc %v, want 0", e.ROCAUC)
	}
}

func TestEvaluateTiesGetAverageRank(t *testing.T) {
	proba := []float64{0.5, 0.5, 0.5, 0.5}
	y := []int{1, 0, 1, 0}
	e := Evaluate(proba, y, 0.5)
	if math.Abs(e.ROCAUC-0.5) > 1e-12 {
		t.Fatalf("roc_auc with all ties %v, want 0.5", e.ROCAUC)
	}
}

func TestEvaluateSingleClassROCIsZero(t *testing.T) {
	e := Evaluate([]float64{0.4, 0.6}, []int{1, 1}, 0.5)
	if e.ROCAUC != 0 {
		t.Fatalf("roc_auc %v, want 0 when one class is absent", e.ROCAUC)
	}
}

func TestEvaluateConfusionMatrixLayout(t *testing.T) {
	// one of each outcome: TN, FP, FN, TP
	proba := []float64{0.1, 0.9, 0.1, 0.9}
	y := []int{0, 0, 1, 1}
	e := Evaluate(proba, y, 0.5)
	want := [2][2]int{{1, 1}, {1, 1}}
	if e.ConfusionMatrix != want {
		t.Fatalf("confusion %v, want [[TN FP] [FN TP]] = %v", e.ConfusionMatrix, want)
	}
}

func TestEvaluateKnownAveragePrecision(t *testing.T) {
	// ranking: pos, neg, pos -> AP = 1*(1/2) + (2/3)*(1/2) = 5/6
	proba := []float64{0.9, 0.8, 0.7}
	y := []int{1, 0, 1}
	e := Evaluate(proba, y, 0.5)
	if math.Abs(e.PRAUC-5.0/6.0) > 1e-12 {
		t.Fatalf("pr_auc %v, want 5/6", e.PRAUC)
	}
}

func TestEvaluateThresholdOverride(t *testing.T) {
	proba := []float64{0.4, 0.4}
	y := []int{1, 0}
	strict := Evaluate(proba, y, 0.5)
	if strict.ConfusionMatrix[1][1] != 0 {
		t.Fatal("0.4 should be below the default threshold")
	}
	loose := Evaluate(proba, y, 0.3)
	if loose.ConfusionMatrix[1][1] != 1 {
		t.Fatal("0.4 should clear a 0.3 threshold")
	}
}
