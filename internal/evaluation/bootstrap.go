package evaluation

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// pairedScore holds both models' predictions for one shared held-out
// passage. The comparison is paired: every resample scores the exact same
// passages under both models.
type pairedScore struct {
	baseline scored
	advanced scored
}

// compareModels runs a seeded paired bootstrap over held-out documents.
// Documents, not passages, are the resampling unit so passages of one filing
// never split across a resample boundary. The p-value is the two-sided
// bootstrap sign estimate.
func compareModels(byDoc map[string][]pairedScore, metric string, rounds int, seed int64) *models.ModelComparison {
	docIDs := make([]string, 0, len(byDoc))
	for id := range byDoc {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)
	if len(docIDs) == 0 {
		return nil
	}

	var allBase, allAdv []scored
	for _, id := range docIDs {
		for _, ps := range byDoc[id] {
			allBase = append(allBase, ps.baseline)
			allAdv = append(allAdv, ps.advanced)
		}
	}
	fullBase := metricValue(metric, allBase)
	fullAdv := metricValue(metric, allAdv)

	rng := rand.New(rand.NewSource(seed))
	deltas := make([]float64, 0, rounds)
	atOrBelow, atOrAbove := 0, 0
	base := make([]scored, 0, len(allBase))
	adv := make([]scored, 0, len(allAdv))
	for r := 0; r < rounds; r++ {
		base = base[:0]
		adv = adv[:0]
		for i := 0; i < len(docIDs); i++ {
			id := docIDs[rng.Intn(len(docIDs))]
			for _, ps := range byDoc[id] {
				base = append(base, ps.baseline)
				adv = append(adv, ps.advanced)
			}
		}
		delta := metricValue(metric, adv) - metricValue(metric, base)
		deltas = append(deltas, delta)
		if delta <= 0 {
			atOrBelow++
		}
		if delta >= 0 {
			atOrAbove++
		}
	}

	sort.Float64s(deltas)
	pValue := 2 * minFloat(float64(atOrBelow), float64(atOrAbove)) / float64(rounds)
	if pValue > 1 {
		pValue = 1
	}

	return &models.ModelComparison{
		Metric:   metric,
		Baseline: fullBase,
		Advanced: fullAdv,
		Delta:    fullAdv - fullBase,
		CILow:    stat.Quantile(0.025, stat.Empirical, deltas, nil),
		CIHigh:   stat.Quantile(0.975, stat.Empirical, deltas, nil),
		PValue:   pValue,
		Rounds:   rounds,
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
