package evaluation

import (
	"fmt"
	"reflect"
	"testing"
)

// pairedFixture builds held-out documents where the advanced model ranks
// perfectly and the baseline is uninformative. Every document mixes both
// classes so no resample degenerates to a single class.
func pairedFixture(docs int) map[string][]pairedScore {
	byDoc := make(map[string][]pairedScore)
	for d := 0; d < docs; d++ {
		id := fmt.Sprintf("DOC%d_10K_2023", d)
		byDoc[id] = []pairedScore{
			{
				baseline: scored{docID: id, prob: 0.5, predicted: 1, y: 1},
				advanced: scored{docID: id, prob: 0.9, predicted: 1, y: 1},
			},
			{
				baseline: scored{docID: id, prob: 0.5, predicted: 1, y: 0},
				advanced: scored{docID: id, prob: 0.1, predicted: 0, y: 0},
			},
		}
	}
	return byDoc
}

func TestCompareModelsClearWinner(t *testing.T) {
	cmp := compareModels(pairedFixture(12), "roc_auc", 400, 7)
	if cmp == nil {
		t.Fatal("compareModels() returned nil")
	}

	if cmp.Baseline != 0.5 || cmp.Advanced != 1.0 {
		t.Errorf("full-sample metrics = %v/%v, want 0.5/1.0", cmp.Baseline, cmp.Advanced)
	}
	if cmp.Delta != 0.5 {
		t.Errorf("Delta = %v, want 0.5", cmp.Delta)
	}
	// Every resample keeps both classes, so the delta never moves.
	if cmp.CILow != 0.5 || cmp.CIHigh != 0.5 {
		t.Errorf("CI = [%v, %v], want [0.5, 0.5]", cmp.CILow, cmp.CIHigh)
	}
	if cmp.PValue != 0 {
		t.Errorf("PValue = %v, want 0", cmp.PValue)
	}
	if cmp.Rounds != 400 || cmp.Metric != "roc_auc" {
		t.Errorf("metadata = %d rounds metric %q", cmp.Rounds, cmp.Metric)
	}
}

func TestCompareModelsIdenticalModels(t *testing.T) {
	byDoc := pairedFixture(8)
	for id := range byDoc {
		for i := range byDoc[id] {
			byDoc[id][i].baseline = byDoc[id][i].advanced
		}
	}

	cmp := compareModels(byDoc, "roc_auc", 200, 11)
	if cmp.Delta != 0 {
		t.Errorf("Delta = %v, want 0", cmp.Delta)
	}
	if cmp.PValue != 1 {
		t.Errorf("PValue = %v, want 1 for indistinguishable models", cmp.PValue)
	}
}

func TestCompareModelsDeterministic(t *testing.T) {
	first := compareModels(pairedFixture(10), "f1", 300, 21)
	second := compareModels(pairedFixture(10), "f1", 300, 21)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical seeds produced different comparisons: %+v vs %+v", first, second)
	}
}

func TestCompareModelsEmpty(t *testing.T) {
	if cmp := compareModels(map[string][]pairedScore{}, "roc_auc", 100, 1); cmp != nil {
		t.Errorf("compareModels() on no documents = %+v, want nil", cmp)
	}
}
