package training

import "sort"

type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

type PRCurveSample struct {
	PrecisionHead []float64 `json:"precision_head"`
	RecallHead    []float64 `json:"recall_head"`
}

// Evaluation holds the threshold-independent ranking metrics plus a fixed
// threshold confusion matrix and per-class report. PR-AUC is the selection
// metric; accuracy is deliberately not reported.
type Evaluation struct {
	PRAUC                float64                 `json:"pr_auc"`
	ROCAUC               float64                 `json:"roc_auc"`
	ConfusionMatrix      [2][2]int               `json:"confusion_matrix"` // [[TN,FP],[FN,TP]]
	ClassificationReport map[string]ClassMetrics `json:"classification_report"`
	PRCurve              PRCurveSample           `json:"pr_curve_sample"`
}

func Evaluate(proba []float64, y []int, threshold float64) Evaluation {
	out := Evaluation{
		PRAUC:  averagePrecision(proba, y),
		ROCAUC: rocAUC(proba, y),
	}

	for i, p := range proba {
		pred := 0
		if p >= threshold {
			pred = 1
		}
		out.ConfusionMatrix[y[i]][pred]++
	}

	out.ClassificationReport = map[string]ClassMetrics{
		"0": classMetrics(out.ConfusionMatrix, 0),
		"1": classMetrics(out.ConfusionMatrix, 1),
	}

	prec, rec := prCurve(proba, y)
	head := len(prec)
	if head > 10 {
		head = 10
	}
	out.PRCurve = PRCurveSample{
		PrecisionHead: prec[:head],
		RecallHead:    rec[:head],
	}
	return out
}

func classMetrics(cm [2][2]int, class int) ClassMetrics {
	tp := cm[class][class]
	fp := cm[1-class][class]
	fn := cm[class][1-class]
	m := ClassMetrics{Support: cm[class][0] + cm[class][1]}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// rocAUC is the Mann-Whitney rank statistic with average ranks on ties.
// Returns 0 when only one class is present, matching the training contract
// of "no ranking signal, no score".
func rocAUC(proba []float64, y []int) float64 {
	n := len(proba)
	var pos, neg int
	for _, v := range y {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return proba[order[a]] < proba[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && proba[order[j]] == proba[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}

	var rankSum float64
	for i, v := range y {
		if v == 1 {
			rankSum += ranks[i]
		}
	}
	return (rankSum - float64(pos)*float64(pos+1)/2) / (float64(pos) * float64(neg))
}

// prCurve returns precision/recall pairs at each distinct descending score
// threshold.
func prCurve(proba []float64, y []int) ([]float64, []float64) {
	n := len(proba)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return proba[order[a]] > proba[order[b]] })

	var totalPos int
	for _, v := range y {
		if v == 1 {
			totalPos++
		}
	}

	var precisions, recalls []float64
	tp, fp := 0, 0
	for i := 0; i < n; {
		j := i
		for j < n && proba[order[j]] == proba[order[i]] {
			if y[order[j]] == 1 {
				tp++
			} else {
				fp++
			}
			j++
		}
		precisions = append(precisions, float64(tp)/float64(tp+fp))
		if totalPos > 0 {
			recalls = append(recalls, float64(tp)/float64(totalPos))
		} else {
			recalls = append(recalls, 0)
		}
		i = j
	}
	return precisions, recalls
}

// averagePrecision sums precision at each recall step, the
// threshold-independent summary that survives heavy class imbalance.
func averagePrecision(proba []float64, y []int) float64 {
	prec, rec := prCurve(proba, y)
	var ap, prevRecall float64
	for i := range prec {
		ap += (rec[i] - prevRecall) * prec[i]
		prevRecall = rec[i]
	}
	return ap
}
