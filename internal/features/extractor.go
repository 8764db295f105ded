package features

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// FeatureExtractionError marks a passage whose text cannot be featurized.
// The caller excludes the passage, logs its identity, and continues the batch.
type FeatureExtractionError struct {
	Key    models.PassageKey
	Reason string
}

func (e *FeatureExtractionError) Error() string {
	return fmt.Sprintf("extract features for %s: %s", e.Key, e.Reason)
}

// Readability formula names recognized in configuration.
const (
	FormulaGunningFog    = "gunning_fog"
	FormulaFleschKincaid = "flesch_kincaid"
)

// Passive voice as the agentive construction: a form of "to be", a participle,
// then "by".
var passiveRe = regexp.MustCompile(`(?i)\b(?:am|is|are|was|were|be|been|being)\s+\w+(?:ed|en)\s+by\b`)

// Extractor computes the dense linguistic features for passages. It holds
// only immutable shared state and is safe for concurrent use by workers.
type Extractor struct {
	hedge   *Lexicon
	vague   *Lexicon
	scorer  SentimentScorer
	formula string
}

func NewExtractor(hedge, vague *Lexicon, scorer SentimentScorer, formula string) *Extractor {
	return &Extractor{hedge: hedge, vague: vague, scorer: scorer, formula: formula}
}

// Extract computes the passage's feature vector. Identical input yields a
// bit-identical vector. A passage with no tokens keeps the neutral zero
// values; only non-text input is an error.
func (e *Extractor) Extract(p *models.Passage) (models.FeatureVector, error) {
	fv := models.FeatureVector{DocumentID: p.DocumentID, PassageIndex: p.PassageIndex}

	if !utf8.ValidString(p.Text) {
		return fv, &FeatureExtractionError{Key: p.Key(), Reason: "text is not valid UTF-8"}
	}

	tokens := Tokenize(p.Text)
	if len(tokens) == 0 {
		return fv, nil
	}
	n := float64(len(tokens))

	fv.HedgeDensity = clamp01(float64(e.hedge.Count(tokens)) / n)
	fv.VagueDensity = clamp01(float64(e.vague.Count(tokens)) / n)
	fv.ModalRate = float64(countModals(tokens)) / n
	fv.NumericDensity = float64(countNumeric(tokens)) / n
	fv.LexicalDiversity = typeTokenRatio(tokens)
	fv.Sentiment = e.scorer.Score(tokens)

	sentences := SplitSentences(p.Text)
	if len(sentences) == 0 {
		return fv, nil
	}
	fv.AvgSentenceLen = n / float64(len(sentences))
	fv.PassiveRate = passiveRate(sentences)
	fv.Readability = e.readability(tokens, len(sentences))

	return fv, nil
}

func passiveRate(sentences []string) float64 {
	hits := 0
	for _, s := range sentences {
		if passiveRe.MatchString(s) {
			hits++
		}
	}
	return float64(hits) / float64(len(sentences))
}

func (e *Extractor) readability(tokens []string, sentenceCount int) float64 {
	words := float64(len(tokens))
	sentences := float64(sentenceCount)

	switch e.formula {
	case FormulaFleschKincaid:
		syllables := 0.0
		for _, tok := range tokens {
			if IsNumericToken(tok) {
				syllables++
				continue
			}
			syllables += float64(countSyllables(tok))
		}
		return 0.39*(words/sentences) + 11.8*(syllables/words) - 15.59
	default:
		complexWords := 0.0
		for _, tok := range tokens {
			if isComplexWord(tok) {
				complexWords++
			}
		}
		return 0.4 * (words/sentences + 100*complexWords/words)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
