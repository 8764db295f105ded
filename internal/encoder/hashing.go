package encoder

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/yannmerakeb/nlp-financial-reports/internal/features"
)

// Hashing is the offline encoder: a signed feature-hashing projection of the
// passage's unigrams and bigrams, L2-normalized. No model weights and no
// network, so fixed-seed runs stay reproducible end to end.
type Hashing struct {
	dimension int
}

func NewHashing(dimension int) *Hashing {
	if dimension <= 0 {
		dimension = 256
	}
	return &Hashing{dimension: dimension}
}

func (h *Hashing) Dimension() int {
	return h.dimension
}

func (h *Hashing) Name() string {
	return "hashing"
}

func (h *Hashing) Encode(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, h.dimension)

	tokens := features.Tokenize(text)
	for i, tok := range tokens {
		h.add(vec, tok)
		if i+1 < len(tokens) {
			h.add(vec, tok+" "+tokens[i+1])
		}
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// add hashes a term into its bucket; the top hash bit picks the sign so
// collisions cancel rather than accumulate.
func (h *Hashing) add(vec []float64, term string) {
	hash := fnv.New64a()
	hash.Write([]byte(term))
	sum := hash.Sum64()

	idx := int(sum % uint64(h.dimension))
	if sum&(1<<63) != 0 {
		vec[idx]--
		return
	}
	vec[idx]++
}
