package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/yannmerakeb/nlp-financial-reports/internal/encoder"
	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// AdvancedOptions configure the encoder-backed classifier head.
type AdvancedOptions struct {
	LearningRate         float64
	Regularization       float64
	Epochs               int
	BatchSize            int
	Patience             int
	Seed                 int64
	IncludeDenseFeatures bool
}

// Advanced scores passages from contextual embeddings: the configured
// encoder maps passage text to a dense vector and a logistic head, trained
// in epochs over shuffled mini-batches, maps the vector to an evasiveness
// probability. Early stopping watches the validation partition.
type Advanced struct {
	enc  encoder.Encoder
	opts AdvancedOptions
	log  *zap.Logger

	weights   []float64
	bias      float64
	denseMean []float64
	denseStd  []float64
	fitted    bool
}

// NewAdvanced creates an unfitted advanced classifier over the given
// encoder.
func NewAdvanced(enc encoder.Encoder, opts AdvancedOptions, log *zap.Logger) *Advanced {
	return &Advanced{enc: enc, opts: opts, log: log}
}

// Name implements Model.
func (a *Advanced) Name() string {
	return models.ModelAdvanced
}

// Fit embeds the training and validation texts, then trains the head.
// A non-finite loss or parameter aborts the run with
// TrainingDivergenceError; there is no fallback to a partial model.
func (a *Advanced) Fit(ctx context.Context, train, validation []Example) error {
	if len(train) == 0 {
		return fmt.Errorf("advanced training requires at least one labeled example")
	}

	a.log.Info("embedding training passages",
		zap.String("encoder", a.enc.Name()),
		zap.Int("train", len(train)),
		zap.Int("validation", len(validation)))

	xs, ys, err := a.embed(ctx, train)
	if err != nil {
		return fmt.Errorf("failed to embed training passages: %w", err)
	}
	if a.opts.IncludeDenseFeatures {
		a.denseMean, a.denseStd = denseStats(train)
		for i, ex := range train {
			xs[i] = append(xs[i], standardize(ex.Dense, a.denseMean, a.denseStd)...)
		}
	}
	valXs, valYs, err := a.embed(ctx, validation)
	if err != nil {
		return fmt.Errorf("failed to embed validation passages: %w", err)
	}
	if a.opts.IncludeDenseFeatures {
		for i, ex := range validation {
			valXs[i] = append(valXs[i], standardize(ex.Dense, a.denseMean, a.denseStd)...)
		}
	}

	dim := len(xs[0])
	a.weights = make([]float64, dim)
	a.bias = 0

	batchSize := a.opts.BatchSize
	if batchSize <= 0 || batchSize > len(train) {
		batchSize = len(train)
	}
	rng := rand.New(rand.NewSource(a.opts.Seed))
	order := make([]int, len(train))
	for i := range order {
		order[i] = i
	}

	bestLoss := math.Inf(1)
	patienceLeft := a.opts.Patience
	var bestWeights []float64
	bestBias := 0.0

	grad := make([]float64, dim)
	for epoch := 1; epoch <= a.opts.Epochs; epoch++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		for start := 0; start < len(order); start += batchSize {
			end := start + batchSize
			if end > len(order) {
				end = len(order)
			}
			a.step(xs, ys, order[start:end], grad)
		}

		trainLoss := a.meanLoss(xs, ys)
		if math.IsNaN(trainLoss) || math.IsInf(trainLoss, 0) || !finite(a.weights) {
			return &TrainingDivergenceError{Model: a.Name(), Epoch: epoch, Loss: trainLoss}
		}

		if len(valXs) == 0 {
			a.log.Debug("advanced epoch complete",
				zap.Int("epoch", epoch),
				zap.Float64("train_loss", trainLoss))
			continue
		}

		valLoss := a.meanLoss(valXs, valYs)
		if math.IsNaN(valLoss) || math.IsInf(valLoss, 0) {
			return &TrainingDivergenceError{Model: a.Name(), Epoch: epoch, Loss: valLoss}
		}
		a.log.Debug("advanced epoch complete",
			zap.Int("epoch", epoch),
			zap.Float64("train_loss", trainLoss),
			zap.Float64("val_loss", valLoss))

		if valLoss < bestLoss-1e-9 {
			bestLoss = valLoss
			bestWeights = append(bestWeights[:0], a.weights...)
			bestBias = a.bias
			patienceLeft = a.opts.Patience
			continue
		}
		if a.opts.Patience > 0 {
			patienceLeft--
			if patienceLeft <= 0 {
				a.log.Info("early stopping",
					zap.Int("epoch", epoch),
					zap.Float64("best_val_loss", bestLoss))
				break
			}
		}
	}

	if bestWeights != nil {
		a.weights = bestWeights
		a.bias = bestBias
	}
	a.fitted = true
	a.log.Info("advanced classifier trained",
		zap.String("encoder", a.enc.Name()),
		zap.Int("examples", len(train)),
		zap.Int("dimension", dim))
	return nil
}

func (a *Advanced) embed(ctx context.Context, examples []Example) ([][]float64, []float64, error) {
	texts := make([]string, len(examples))
	ys := make([]float64, len(examples))
	for i, ex := range examples {
		texts[i] = ex.Text
		ys[i] = float64(ex.Y)
	}
	xs, err := encoder.EncodeAll(ctx, a.enc, texts)
	if err != nil {
		return nil, nil, err
	}
	return xs, ys, nil
}

func (a *Advanced) step(xs [][]float64, ys []float64, batch []int, grad []float64) {
	for j := range grad {
		grad[j] = 0
	}
	gradBias := 0.0
	for _, i := range batch {
		p := sigmoid(floats.Dot(a.weights, xs[i]) + a.bias)
		g := p - ys[i]
		floats.AddScaled(grad, g, xs[i])
		gradBias += g
	}

	m := float64(len(batch))
	lr := a.opts.LearningRate
	l2 := a.opts.Regularization
	for j := range a.weights {
		a.weights[j] -= lr * (grad[j]/m + l2*a.weights[j])
	}
	a.bias -= lr * gradBias / m
}

func (a *Advanced) meanLoss(xs [][]float64, ys []float64) float64 {
	total := 0.0
	for i := range xs {
		total += logLoss(sigmoid(floats.Dot(a.weights, xs[i])+a.bias), ys[i])
	}
	return total / float64(len(xs))
}

// Predict implements Model. The passage is embedded through the configured
// encoder, so prediction may reach an external service.
func (a *Advanced) Predict(ctx context.Context, ex Example) (float64, error) {
	if !a.fitted {
		return 0, fmt.Errorf("advanced classifier is not fitted")
	}
	x, err := a.enc.Encode(ctx, ex.Text)
	if err != nil {
		return 0, fmt.Errorf("failed to embed passage %s: %w", ex.Key, err)
	}
	if len(a.denseMean) > 0 {
		x = append(x, standardize(ex.Dense, a.denseMean, a.denseStd)...)
	}
	if len(x) != len(a.weights) {
		return 0, fmt.Errorf("embedding width %d does not match head width %d", len(x), len(a.weights))
	}
	return sigmoid(floats.Dot(a.weights, x) + a.bias), nil
}
