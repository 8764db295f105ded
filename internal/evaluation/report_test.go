package evaluation

import (
	"math"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

func intPtr(v int) *int         { return &v }
func boolPtr(v bool) *bool      { return &v }
func f64Ptr(v float64) *float64 { return &v }

// reportFixture builds five two-passage documents. ADV documents saw an
// adverse market reaction, SAFE documents did not, and LOST has no market
// join. The advanced model separates classes perfectly and scores ADV
// documents higher on aggregate; the baseline is uninformative.
func reportFixture() ([]models.PredictionRecord, []models.Label) {
	type passage struct {
		doc     string
		idx     int
		y       int
		source  models.LabelSource
		advProb float64
		adverse *bool
	}
	passages := []passage{
		{"ADV1_10K_2023", 0, 1, models.SourceHuman, 0.9, boolPtr(true)},
		{"ADV1_10K_2023", 1, 0, models.SourceHuman, 0.2, boolPtr(true)},
		{"ADV2_10K_2023", 0, 1, models.SourceWeak, 0.9, boolPtr(true)},
		{"ADV2_10K_2023", 1, 0, models.SourceWeak, 0.24, boolPtr(true)},
		{"SAFE1_10K_2023", 0, 1, models.SourceWeak, 0.8, boolPtr(false)},
		{"SAFE1_10K_2023", 1, 0, models.SourceWeak, 0.1, boolPtr(false)},
		{"SAFE2_10K_2023", 0, 1, models.SourceWeak, 0.8, boolPtr(false)},
		{"SAFE2_10K_2023", 1, 0, models.SourceWeak, 0.14, boolPtr(false)},
		{"LOST_10K_2023", 0, 1, models.SourceWeak, 0.9, nil},
		{"LOST_10K_2023", 1, 0, models.SourceWeak, 0.1, nil},
	}

	var preds []models.PredictionRecord
	var labels []models.Label
	for _, p := range passages {
		labels = append(labels, models.Label{
			DocumentID:    p.doc,
			PassageIndex:  p.idx,
			Evasive:       intPtr(p.y),
			Source:        p.source,
			MarketAdverse: p.adverse,
			ForwardReturn: f64Ptr(-0.02),
			WindowDays:    3,
		})

		advPredicted := 0
		if p.advProb >= 0.5 {
			advPredicted = 1
		}
		preds = append(preds,
			models.PredictionRecord{
				RunID: "run-1", DocumentID: p.doc, PassageIndex: p.idx,
				Model: models.ModelAdvanced, Probability: p.advProb, Predicted: advPredicted,
			},
			models.PredictionRecord{
				RunID: "run-1", DocumentID: p.doc, PassageIndex: p.idx,
				Model: models.ModelBaseline, Probability: 0.5, Predicted: 1,
			},
		)
	}
	// A prediction without a matching label must be ignored.
	preds = append(preds, models.PredictionRecord{
		RunID: "run-1", DocumentID: "GHOST_10K_2023", PassageIndex: 0,
		Model: models.ModelAdvanced, Probability: 0.7, Predicted: 1,
	})
	return preds, labels
}

func testEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	engine, err := New(opts, zap.NewNop())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return engine
}

func TestEvaluateReport(t *testing.T) {
	preds, labels := reportFixture()
	engine := testEngine(t, Options{BootstrapRounds: 500, Seed: 3})

	report, err := engine.Evaluate(preds, labels)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}

	if len(report.Models) != 2 {
		t.Fatalf("report covers %d models, want 2", len(report.Models))
	}
	advanced, baseline := report.Models[0], report.Models[1]
	if advanced.Model != models.ModelAdvanced || baseline.Model != models.ModelBaseline {
		t.Fatalf("model order = %s, %s", advanced.Model, baseline.Model)
	}

	if advanced.Examples != 10 || advanced.Positives != 5 {
		t.Errorf("advanced counts = %d/%d, want 10/5", advanced.Examples, advanced.Positives)
	}
	if advanced.Precision != 1 || advanced.Recall != 1 || advanced.F1 != 1 || advanced.ROCAUC != 1 {
		t.Errorf("advanced metrics = %+v, want perfect", advanced)
	}
	if baseline.Precision != 0.5 || baseline.Recall != 1 || baseline.ROCAUC != 0.5 {
		t.Errorf("baseline metrics = %+v", baseline)
	}

	cmp := report.Comparison
	if cmp == nil {
		t.Fatal("comparison missing")
	}
	if cmp.Baseline != 0.5 || cmp.Advanced != 1.0 || cmp.Delta != 0.5 {
		t.Errorf("comparison = %+v", cmp)
	}
	if cmp.PValue != 0 || cmp.CILow != 0.5 || cmp.CIHigh != 0.5 {
		t.Errorf("comparison significance = p=%v CI=[%v,%v]", cmp.PValue, cmp.CILow, cmp.CIHigh)
	}

	// The baseline's constant scores have no variance, so only the advanced
	// model yields an association.
	if len(report.Associations) != 1 {
		t.Fatalf("associations = %+v, want exactly one", report.Associations)
	}
	assoc := report.Associations[0]
	if assoc.Model != models.ModelAdvanced || assoc.Test != "point_biserial" || assoc.Aggregation != "mean" {
		t.Errorf("association identity = %+v", assoc)
	}
	if assoc.Documents != 4 || assoc.Adverse != 2 {
		t.Errorf("association coverage = %d docs / %d adverse, want 4/2", assoc.Documents, assoc.Adverse)
	}
	if assoc.EffectSize < 0.9 || assoc.PValue >= 0.05 {
		t.Errorf("association strength = effect %v p %v", assoc.EffectSize, assoc.PValue)
	}

	meta := report.Run
	if meta.Documents != 5 || meta.Passages != 10 {
		t.Errorf("meta counts = %d docs / %d passages, want 5/10", meta.Documents, meta.Passages)
	}
	if meta.HumanLabeled != 2 || meta.WeakLabeled != 8 {
		t.Errorf("meta label sources = %d human / %d weak, want 2/8", meta.HumanLabeled, meta.WeakLabeled)
	}
	if meta.ExcludedFromCorrelation != 1 {
		t.Errorf("excluded documents = %d, want exactly 1", meta.ExcludedFromCorrelation)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	preds, labels := reportFixture()
	engine := testEngine(t, Options{BootstrapRounds: 300, Seed: 9})

	first, err := engine.Evaluate(preds, labels)
	if err != nil {
		t.Fatalf("first Evaluate() failed: %v", err)
	}
	second, err := engine.Evaluate(preds, labels)
	if err != nil {
		t.Fatalf("second Evaluate() failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated evaluation produced different reports")
	}
}

func TestEvaluateMeanDiffAssociation(t *testing.T) {
	preds, labels := reportFixture()
	engine := testEngine(t, Options{BootstrapRounds: 100, Seed: 1, Association: "mean_diff"})

	report, err := engine.Evaluate(preds, labels)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if len(report.Associations) != 1 {
		t.Fatalf("associations = %+v, want exactly one", report.Associations)
	}
	assoc := report.Associations[0]
	if assoc.Test != "mean_diff" {
		t.Errorf("association test = %q, want mean_diff", assoc.Test)
	}
	// ADV document means are 0.55 and 0.57, SAFE means 0.45 and 0.47.
	if math.Abs(assoc.EffectSize-0.1) > 1e-9 {
		t.Errorf("effect size = %v, want 0.1", assoc.EffectSize)
	}
	if assoc.PValue >= 0.05 {
		t.Errorf("p-value = %v, want < 0.05", assoc.PValue)
	}
}

func TestEvaluateMaxAggregation(t *testing.T) {
	preds, labels := reportFixture()
	engine := testEngine(t, Options{BootstrapRounds: 100, Seed: 1, Aggregation: "max"})

	report, err := engine.Evaluate(preds, labels)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if len(report.Associations) != 1 {
		t.Fatalf("associations = %+v, want exactly one", report.Associations)
	}
	assoc := report.Associations[0]
	if assoc.Aggregation != "max" {
		t.Errorf("aggregation = %q, want max", assoc.Aggregation)
	}
	// Document maxima are 0.9/0.9 against 0.8/0.8.
	if assoc.EffectSize < 0.9 {
		t.Errorf("effect size = %v, want near-perfect separation", assoc.EffectSize)
	}
}

func TestEvaluateErrors(t *testing.T) {
	_, labels := reportFixture()
	engine := testEngine(t, Options{})
	if _, err := engine.Evaluate(nil, labels); err == nil {
		t.Error("Evaluate() accepted an empty prediction set")
	}

	if _, err := New(Options{ComparisonMetric: "accuracy"}, zap.NewNop()); err == nil {
		t.Error("New() accepted an unknown comparison metric")
	}
	if _, err := New(Options{Aggregation: "median"}, zap.NewNop()); err == nil {
		t.Error("New() accepted an unknown aggregation rule")
	}
	if _, err := New(Options{Association: "spearman"}, zap.NewNop()); err == nil {
		t.Error("New() accepted an unknown association test")
	}
}
