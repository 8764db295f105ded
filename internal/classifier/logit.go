package classifier

import (
	"context"
	"math"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// Model is the shared classifier contract. Fit consumes the training and
// validation partitions of the common document-level split; Predict returns
// the evasiveness probability for one passage.
type Model interface {
	Name() string
	Fit(ctx context.Context, train, validation []Example) error
	Predict(ctx context.Context, ex Example) (float64, error)
}

// PredictAll scores every example with a fitted model, emitting one
// append-only prediction record per passage for the given run.
func PredictAll(ctx context.Context, m Model, examples []Example, runID string) ([]models.PredictionRecord, error) {
	records := make([]models.PredictionRecord, 0, len(examples))
	for _, ex := range examples {
		p, err := m.Predict(ctx, ex)
		if err != nil {
			return nil, err
		}
		predicted := 0
		if p >= 0.5 {
			predicted = 1
		}
		records = append(records, models.PredictionRecord{
			RunID:        runID,
			DocumentID:   ex.Key.DocumentID,
			PassageIndex: ex.Key.PassageIndex,
			Model:        m.Name(),
			Probability:  p,
			Predicted:    predicted,
		})
	}
	return records, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// logLoss is the per-example cross entropy with probabilities clamped away
// from 0 and 1 so a saturated sigmoid stays finite.
func logLoss(p, y float64) float64 {
	const eps = 1e-12
	p = math.Min(math.Max(p, eps), 1-eps)
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// denseStats computes the per-feature mean and standard deviation of the
// examples' dense blocks for standardization. Constant features get a unit
// deviation so they standardize to zero instead of dividing by zero.
func denseStats(examples []Example) (mean, std []float64) {
	if len(examples) == 0 || len(examples[0].Dense) == 0 {
		return nil, nil
	}
	width := len(examples[0].Dense)
	mean = make([]float64, width)
	std = make([]float64, width)
	for _, ex := range examples {
		for j, x := range ex.Dense {
			mean[j] += x
		}
	}
	n := float64(len(examples))
	for j := range mean {
		mean[j] /= n
	}
	for _, ex := range examples {
		for j, x := range ex.Dense {
			d := x - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	return mean, std
}

func standardize(dense, mean, std []float64) []float64 {
	out := make([]float64, len(dense))
	for j, x := range dense {
		out[j] = (x - mean[j]) / std[j]
	}
	return out
}
