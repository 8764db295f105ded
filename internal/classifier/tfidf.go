package classifier

import (
	"math"
	"sort"

	"github.com/yannmerakeb/nlp-financial-reports/internal/features"
)

// stopWords are structural English words excluded from the bag-of-terms
// vocabulary. Hedging and modal terms stay in deliberately; they carry the
// classification signal.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "been": true, "but": true, "by": true, "for": true,
	"from": true, "had": true, "has": true, "have": true, "he": true,
	"her": true, "his": true, "i": true, "if": true, "in": true,
	"into": true, "is": true, "it": true, "its": true, "of": true,
	"on": true, "or": true, "our": true, "she": true, "such": true,
	"that": true, "the": true, "their": true, "them": true, "then": true,
	"there": true, "these": true, "they": true, "this": true, "to": true,
	"was": true, "we": true, "were": true, "what": true, "when": true,
	"which": true, "who": true, "with": true, "you": true,
}

// sparseVec is a sorted sparse vector: idx is strictly increasing and val
// holds the matching values. The fixed ordering keeps dot products and
// gradient updates bit-reproducible across runs.
type sparseVec struct {
	idx []int
	val []float64
}

func (v sparseVec) dot(w []float64) float64 {
	sum := 0.0
	for k, j := range v.idx {
		sum += w[j] * v.val[k]
	}
	return sum
}

// Vectorizer maps passage text to TF-IDF weighted sparse vectors over a
// capped vocabulary of unigrams and bigrams.
type Vectorizer struct {
	vocab   map[string]int
	idf     []float64
	maxSize int
}

// NewVectorizer creates an unfitted vectorizer with the given vocabulary cap.
func NewVectorizer(maxVocabulary int) *Vectorizer {
	if maxVocabulary <= 0 {
		maxVocabulary = 10000
	}
	return &Vectorizer{maxSize: maxVocabulary}
}

// Size returns the fitted vocabulary size.
func (v *Vectorizer) Size() int {
	return len(v.vocab)
}

// terms produces the stop-word filtered unigrams and bigrams of a text.
func terms(text string) []string {
	tokens := features.Tokenize(text)
	kept := tokens[:0]
	for _, tok := range tokens {
		if !stopWords[tok] {
			kept = append(kept, tok)
		}
	}
	out := make([]string, 0, 2*len(kept))
	for i, tok := range kept {
		out = append(out, tok)
		if i+1 < len(kept) {
			out = append(out, tok+" "+kept[i+1])
		}
	}
	return out
}

// Fit learns the vocabulary and document frequencies from the training
// texts. Terms are ranked by document frequency (ties alphabetical) before
// the cap is applied, and indices are assigned in sorted term order so a
// fitted vectorizer is fully determined by its input.
func (v *Vectorizer) Fit(texts []string) {
	df := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]bool)
		for _, term := range terms(text) {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	candidates := make([]string, 0, len(df))
	for term := range df {
		candidates = append(candidates, term)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if df[candidates[i]] != df[candidates[j]] {
			return df[candidates[i]] > df[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	if len(candidates) > v.maxSize {
		candidates = candidates[:v.maxSize]
	}
	sort.Strings(candidates)

	v.vocab = make(map[string]int, len(candidates))
	v.idf = make([]float64, len(candidates))
	n := float64(len(texts))
	for i, term := range candidates {
		v.vocab[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
}

// Transform maps a text to its L2-normalized TF-IDF vector. Term frequency
// is sublinear (1 + log count); unknown terms are dropped.
func (v *Vectorizer) Transform(text string) sparseVec {
	counts := make(map[int]int)
	for _, term := range terms(text) {
		if j, ok := v.vocab[term]; ok {
			counts[j]++
		}
	}
	if len(counts) == 0 {
		return sparseVec{}
	}

	vec := sparseVec{
		idx: make([]int, 0, len(counts)),
		val: make([]float64, 0, len(counts)),
	}
	for j := range counts {
		vec.idx = append(vec.idx, j)
	}
	sort.Ints(vec.idx)

	norm := 0.0
	for _, j := range vec.idx {
		x := (1 + math.Log(float64(counts[j]))) * v.idf[j]
		vec.val = append(vec.val, x)
		norm += x * x
	}
	norm = math.Sqrt(norm)
	for k := range vec.val {
		vec.val[k] /= norm
	}
	return vec
}
