package evaluation

import (
	"sort"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// scored is one evaluated prediction joined with its evasiveness label.
type scored struct {
	docID     string
	prob      float64
	predicted int
	y         int
}

// confusionMetrics computes precision, recall, and F1 from the predicted
// classes. Undefined ratios (empty denominators) report zero.
func confusionMetrics(examples []scored) (precision, recall, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for _, ex := range examples {
		switch {
		case ex.predicted == 1 && ex.y == 1:
			tp++
		case ex.predicted == 1 && ex.y == 0:
			fp++
		case ex.predicted == 0 && ex.y == 1:
			fn++
		}
	}
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

// rocAUC is the rank-based (Mann-Whitney) area under the ROC curve with
// average ranks for tied probabilities. A single-class sample has no ranking
// to score and reports the neutral 0.5.
func rocAUC(examples []scored) float64 {
	n := len(examples)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return examples[idx[a]].prob < examples[idx[b]].prob
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && examples[idx[j+1]].prob == examples[idx[i]].prob {
			j++
		}
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	nPos, nNeg := 0, 0
	sumPos := 0.0
	for i, ex := range examples {
		if ex.y == 1 {
			nPos++
			sumPos += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}
	p, q := float64(nPos), float64(nNeg)
	return (sumPos - p*(p+1)/2) / (p * q)
}

const calibrationBins = 10

// calibration buckets predictions into equal-width probability bins and
// reports mean predicted probability against observed positive frequency.
func calibration(examples []scored) []models.CalibrationBucket {
	buckets := make([]models.CalibrationBucket, calibrationBins)
	sums := make([]float64, calibrationBins)
	positives := make([]int, calibrationBins)
	for i := range buckets {
		buckets[i].Low = float64(i) / calibrationBins
		buckets[i].High = float64(i+1) / calibrationBins
	}

	for _, ex := range examples {
		bin := int(ex.prob * calibrationBins)
		if bin >= calibrationBins {
			bin = calibrationBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		buckets[bin].Count++
		sums[bin] += ex.prob
		positives[bin] += ex.y
	}

	for i := range buckets {
		if buckets[i].Count == 0 {
			continue
		}
		buckets[i].MeanPredicted = sums[i] / float64(buckets[i].Count)
		buckets[i].ObservedRate = float64(positives[i]) / float64(buckets[i].Count)
	}
	return buckets
}

// metricValue evaluates the named comparison metric over the examples.
func metricValue(name string, examples []scored) float64 {
	if name == "f1" {
		_, _, f1 := confusionMetrics(examples)
		return f1
	}
	return rocAUC(examples)
}

// modelMetrics assembles the full per-model metric block.
func modelMetrics(name string, examples []scored) models.ModelMetrics {
	precision, recall, f1 := confusionMetrics(examples)
	positives := 0
	for _, ex := range examples {
		positives += ex.y
	}
	return models.ModelMetrics{
		Model:       name,
		Examples:    len(examples),
		Positives:   positives,
		Precision:   precision,
		Recall:      recall,
		F1:          f1,
		ROCAUC:      rocAUC(examples),
		Calibration: calibration(examples),
	}
}
