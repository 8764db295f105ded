package evaluation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// AssociationTest measures the relationship between document-level predicted
// evasiveness and the adverse market-reaction label. Implementations report
// an effect size and a two-sided p-value; neither implies causation.
type AssociationTest interface {
	Name() string
	Test(scores []float64, adverse []bool) (effect, pValue float64, err error)
}

// NewAssociationTest selects the configured test.
func NewAssociationTest(name string) (AssociationTest, error) {
	switch name {
	case "point_biserial", "":
		return pointBiserial{}, nil
	case "mean_diff":
		return meanDiff{}, nil
	default:
		return nil, fmt.Errorf("unknown association test %q", name)
	}
}

// pointBiserial is the Pearson correlation between a continuous score and a
// binary outcome, with significance from the Student's t transform.
type pointBiserial struct{}

func (pointBiserial) Name() string { return "point_biserial" }

func (pointBiserial) Test(scores []float64, adverse []bool) (float64, float64, error) {
	n := len(scores)
	if n < 3 {
		return 0, 0, fmt.Errorf("point-biserial correlation requires at least 3 documents, got %d", n)
	}
	ys := make([]float64, n)
	nAdverse := 0
	for i, a := range adverse {
		if a {
			ys[i] = 1
			nAdverse++
		}
	}
	if nAdverse == 0 || nAdverse == n {
		return 0, 0, fmt.Errorf("all documents fall in one market-reaction group")
	}

	r := stat.Correlation(scores, ys, nil)
	if math.IsNaN(r) {
		return 0, 0, fmt.Errorf("scores have zero variance")
	}

	df := float64(n - 2)
	var p float64
	if 1-r*r <= 0 {
		p = 0
	} else {
		t := r * math.Sqrt(df/(1-r*r))
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		p = 2 * dist.CDF(-math.Abs(t))
	}
	return r, p, nil
}

// meanDiff is Welch's unequal-variance two-sample t-test; the effect size is
// the raw difference of group mean scores (adverse minus non-adverse).
type meanDiff struct{}

func (meanDiff) Name() string { return "mean_diff" }

func (meanDiff) Test(scores []float64, adverse []bool) (float64, float64, error) {
	var a, b []float64
	for i, adv := range adverse {
		if adv {
			a = append(a, scores[i])
		} else {
			b = append(b, scores[i])
		}
	}
	if len(a) < 2 || len(b) < 2 {
		return 0, 0, fmt.Errorf("mean-difference test requires at least 2 documents per group, got %d/%d", len(a), len(b))
	}

	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	effect := meanA - meanB

	na, nb := float64(len(a)), float64(len(b))
	se2 := varA/na + varB/nb
	if se2 == 0 {
		return 0, 0, fmt.Errorf("scores have zero variance in both groups")
	}

	t := effect / math.Sqrt(se2)
	// Welch-Satterthwaite degrees of freedom.
	df := se2 * se2 / ((varA*varA)/(na*na*(na-1)) + (varB*varB)/(nb*nb*(nb-1)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.CDF(-math.Abs(t))
	return effect, p, nil
}
