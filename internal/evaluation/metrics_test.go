package evaluation

import (
	"math"
	"testing"
)

// mk builds scored examples with predicted class thresholded at 0.5.
func mk(probs []float64, ys []int) []scored {
	out := make([]scored, len(probs))
	for i := range probs {
		predicted := 0
		if probs[i] >= 0.5 {
			predicted = 1
		}
		out[i] = scored{docID: "D_10K_2023", prob: probs[i], predicted: predicted, y: ys[i]}
	}
	return out
}

func TestConfusionMetrics(t *testing.T) {
	cases := []struct {
		name          string
		probs         []float64
		ys            []int
		wantPrecision float64
		wantRecall    float64
		wantF1        float64
	}{
		{
			name:  "perfect",
			probs: []float64{0.9, 0.1, 0.8, 0.2}, ys: []int{1, 0, 1, 0},
			wantPrecision: 1, wantRecall: 1, wantF1: 1,
		},
		{
			name:  "half right",
			probs: []float64{0.9, 0.9, 0.1, 0.1}, ys: []int{1, 0, 0, 1},
			wantPrecision: 0.5, wantRecall: 0.5, wantF1: 0.5,
		},
		{
			name:  "nothing predicted positive",
			probs: []float64{0.1, 0.2}, ys: []int{1, 0},
			wantPrecision: 0, wantRecall: 0, wantF1: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			precision, recall, f1 := confusionMetrics(mk(tc.probs, tc.ys))
			if precision != tc.wantPrecision {
				t.Errorf("precision = %v, want %v", precision, tc.wantPrecision)
			}
			if recall != tc.wantRecall {
				t.Errorf("recall = %v, want %v", recall, tc.wantRecall)
			}
			if f1 != tc.wantF1 {
				t.Errorf("f1 = %v, want %v", f1, tc.wantF1)
			}
		})
	}
}

func TestROCAUC(t *testing.T) {
	cases := []struct {
		name  string
		probs []float64
		ys    []int
		want  float64
	}{
		{"perfect ranking", []float64{0.9, 0.8, 0.2, 0.1}, []int{1, 1, 0, 0}, 1.0},
		{"inverted ranking", []float64{0.1, 0.2, 0.8, 0.9}, []int{1, 1, 0, 0}, 0.0},
		{"tied scores share rank", []float64{0.9, 0.8, 0.8, 0.1}, []int{1, 1, 0, 0}, 0.875},
		{"all tied", []float64{0.5, 0.5, 0.5, 0.5}, []int{1, 1, 0, 0}, 0.5},
		{"single class", []float64{0.9, 0.8}, []int{1, 1}, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rocAUC(mk(tc.probs, tc.ys)); math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("rocAUC = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCalibration(t *testing.T) {
	examples := mk(
		[]float64{0.05, 0.05, 0.55, 0.95, 1.0},
		[]int{0, 1, 0, 1, 1},
	)
	buckets := calibration(examples)

	if len(buckets) != 10 {
		t.Fatalf("calibration produced %d buckets, want 10", len(buckets))
	}
	if buckets[0].Low != 0 || buckets[0].High != 0.1 || buckets[9].High != 1.0 {
		t.Errorf("bucket bounds wrong: first %+v last %+v", buckets[0], buckets[9])
	}

	if buckets[0].Count != 2 || buckets[0].ObservedRate != 0.5 {
		t.Errorf("low bucket = %+v, want count 2 observed 0.5", buckets[0])
	}
	if math.Abs(buckets[0].MeanPredicted-0.05) > 1e-12 {
		t.Errorf("low bucket mean predicted = %v, want 0.05", buckets[0].MeanPredicted)
	}
	if buckets[5].Count != 1 || buckets[5].ObservedRate != 0 {
		t.Errorf("middle bucket = %+v, want count 1 observed 0", buckets[5])
	}
	// A probability of exactly 1.0 belongs to the top bucket.
	if buckets[9].Count != 2 || buckets[9].ObservedRate != 1.0 {
		t.Errorf("top bucket = %+v, want count 2 observed 1.0", buckets[9])
	}
	if buckets[3].Count != 0 || buckets[3].MeanPredicted != 0 {
		t.Errorf("empty bucket carries values: %+v", buckets[3])
	}
}

func TestMetricValue(t *testing.T) {
	examples := mk([]float64{0.9, 0.9, 0.1, 0.1}, []int{1, 0, 0, 1})
	if got := metricValue("f1", examples); got != 0.5 {
		t.Errorf("metricValue(f1) = %v, want 0.5", got)
	}
	if got := metricValue("roc_auc", examples); got != 0.5 {
		t.Errorf("metricValue(roc_auc) = %v, want 0.5", got)
	}
}
