package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// BaselineOptions configure the TF-IDF logistic regression.
type BaselineOptions struct {
	MaxVocabulary        int
	LearningRate         float64
	Regularization       float64
	Epochs               int
	BatchSize            int
	Seed                 int64
	IncludeDenseFeatures bool
}

// Baseline is the linear reference classifier: TF-IDF bag of terms,
// optionally concatenated with the standardized dense feature block, feeding
// an L2-regularized logistic regression trained by seeded mini-batch
// gradient descent.
type Baseline struct {
	opts BaselineOptions
	log  *zap.Logger

	vec       *Vectorizer
	weights   []float64
	bias      float64
	denseMean []float64
	denseStd  []float64
	fitted    bool
}

// NewBaseline creates an unfitted baseline classifier.
func NewBaseline(opts BaselineOptions, log *zap.Logger) *Baseline {
	return &Baseline{opts: opts, log: log}
}

// Name implements Model.
func (b *Baseline) Name() string {
	return models.ModelBaseline
}

// Fit trains the model on the training partition. The validation partition
// is unused; the baseline trains for a fixed number of epochs. Given the
// same examples and seed the fitted weights are reproducible.
func (b *Baseline) Fit(ctx context.Context, train, _ []Example) error {
	if len(train) == 0 {
		return fmt.Errorf("baseline training requires at least one labeled example")
	}

	texts := make([]string, len(train))
	for i, ex := range train {
		texts[i] = ex.Text
	}
	b.vec = NewVectorizer(b.opts.MaxVocabulary)
	b.vec.Fit(texts)

	denseWidth := 0
	if b.opts.IncludeDenseFeatures {
		b.denseMean, b.denseStd = denseStats(train)
		denseWidth = len(b.denseMean)
	}

	xs := make([]sparseVec, len(train))
	ys := make([]float64, len(train))
	for i, ex := range train {
		xs[i] = b.vec.Transform(ex.Text)
		if denseWidth > 0 {
			xs[i] = appendDense(xs[i], b.vec.Size(), standardize(ex.Dense, b.denseMean, b.denseStd))
		}
		ys[i] = float64(ex.Y)
	}

	dim := b.vec.Size() + denseWidth
	b.weights = make([]float64, dim)
	b.bias = 0

	batchSize := b.opts.BatchSize
	if batchSize <= 0 || batchSize > len(train) {
		batchSize = len(train)
	}
	rng := rand.New(rand.NewSource(b.opts.Seed))
	order := make([]int, len(train))
	for i := range order {
		order[i] = i
	}

	grad := make([]float64, dim)
	lastLoss := 0.0
	for epoch := 1; epoch <= b.opts.Epochs; epoch++ {
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
			b.step(xs, ys, order[start:end], grad)
		}

		lastLoss = b.meanLoss(xs, ys)
		if math.IsNaN(lastLoss) || math.IsInf(lastLoss, 0) || !finite(b.weights) {
			return &TrainingDivergenceError{Model: b.Name(), Epoch: epoch, Loss: lastLoss}
		}
		b.log.Debug("baseline epoch complete",
			zap.Int("epoch", epoch),
			zap.Float64("train_loss", lastLoss))
	}

	b.fitted = true
	b.log.Info("baseline classifier trained",
		zap.Int("examples", len(train)),
		zap.Int("vocabulary", b.vec.Size()),
		zap.Float64("train_loss", lastLoss))
	return nil
}

func (b *Baseline) step(xs []sparseVec, ys []float64, batch []int, grad []float64) {
	for j := range grad {
		grad[j] = 0
	}
	gradBias := 0.0
	for _, i := range batch {
		p := sigmoid(xs[i].dot(b.weights) + b.bias)
		g := p - ys[i]
		for k, j := range xs[i].idx {
			grad[j] += g * xs[i].val[k]
		}
		gradBias += g
	}

	m := float64(len(batch))
	lr := b.opts.LearningRate
	l2 := b.opts.Regularization
	for j := range b.weights {
		b.weights[j] -= lr * (grad[j]/m + l2*b.weights[j])
	}
	b.bias -= lr * gradBias / m
}

func (b *Baseline) meanLoss(xs []sparseVec, ys []float64) float64 {
	total := 0.0
	for i := range xs {
		total += logLoss(sigmoid(xs[i].dot(b.weights)+b.bias), ys[i])
	}
	return total / float64(len(xs))
}

// Predict implements Model. The context is unused; prediction is purely
// local.
func (b *Baseline) Predict(_ context.Context, ex Example) (float64, error) {
	if !b.fitted {
		return 0, fmt.Errorf("baseline classifier is not fitted")
	}
	x := b.vec.Transform(ex.Text)
	if len(b.denseMean) > 0 {
		x = appendDense(x, b.vec.Size(), standardize(ex.Dense, b.denseMean, b.denseStd))
	}
	return sigmoid(x.dot(b.weights) + b.bias), nil
}

// appendDense extends a sorted sparse vector with the standardized dense
// block at indices base..base+len-1. Zero entries are dropped; they cannot
// move the dot product.
func appendDense(vec sparseVec, base int, dense []float64) sparseVec {
	for j, x := range dense {
		if x == 0 {
			continue
		}
		vec.idx = append(vec.idx, base+j)
		vec.val = append(vec.val, x)
	}
	return vec
}
