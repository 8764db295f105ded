package models

import "time"

// CalibrationBucket is one equal-width probability bin of a reliability curve.
type CalibrationBucket struct {
	Low           float64 `json:"low"`
	High          float64 `json:"high"`
	MeanPredicted float64 `json:"mean_predicted"`
	ObservedRate  float64 `json:"observed_rate"`
	Count         int     `json:"count"`
}

// ModelMetrics are the per-model classification metrics over the shared
// held-out partition.
type ModelMetrics struct {
	Model       string              `json:"model"`
	Examples    int                 `json:"examples"`
	Positives   int                 `json:"positives"`
	Precision   float64             `json:"precision"`
	Recall      float64             `json:"recall"`
	F1          float64             `json:"f1"`
	ROCAUC      float64             `json:"roc_auc"`
	Calibration []CalibrationBucket `json:"calibration"`
}

// ModelComparison is the paired-bootstrap delta of the comparison metric
// (advanced minus baseline) over the shared held-out documents.
type ModelComparison struct {
	Metric   string  `json:"metric"`
	Baseline float64 `json:"baseline"`
	Advanced float64 `json:"advanced"`
	Delta    float64 `json:"delta"`
	CILow    float64 `json:"ci_low"`
	CIHigh   float64 `json:"ci_high"`
	PValue   float64 `json:"p_value"`
	Rounds   int     `json:"rounds"`
}

// Association reports the strength of the evasiveness/market-reaction
// relationship at document level. It states association only, never causation.
type Association struct {
	Test        string  `json:"test"`        // "point_biserial" | "mean_diff"
	Aggregation string  `json:"aggregation"` // "mean" | "max"
	Model       string  `json:"model"`
	EffectSize  float64 `json:"effect_size"`
	PValue      float64 `json:"p_value"`
	Documents   int     `json:"documents"`
	Adverse     int     `json:"adverse"`
}

// RunMeta is the accounting block of a report: what went in, what was
// skipped, what was excluded. Skips are counted here precisely so silent data
// loss stays observable.
type RunMeta struct {
	RunID                   string    `json:"run_id"`
	StartedAt               time.Time `json:"started_at"`
	FinishedAt              time.Time `json:"finished_at"`
	Documents               int       `json:"documents"`
	Passages                int       `json:"passages"`
	HumanLabeled            int       `json:"human_labeled"`
	WeakLabeled             int       `json:"weak_labeled"`
	SkippedDocuments        int       `json:"skipped_documents"`
	SkippedPassages         int       `json:"skipped_passages"`
	ExcludedFromCorrelation int       `json:"excluded_from_correlation"`
}

// EvaluationReport is the externally consumed summary of a run. It is derived
// state: recomputable at any time from PredictionRecords and Labels.
type EvaluationReport struct {
	Run          RunMeta          `json:"run"`
	Models       []ModelMetrics   `json:"models"`
	Comparison   *ModelComparison `json:"comparison,omitempty"`
	Associations []Association    `json:"associations,omitempty"`
}
