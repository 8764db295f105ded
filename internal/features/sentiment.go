package features

// SentimentScorer maps a token sequence to a polarity in [-1, 1]. The scorer
// is an opaque collaborator so a pretrained model can replace the lexicon
// without touching the extractor.
type SentimentScorer interface {
	Score(tokens []string) float64
}

// LexiconSentiment scores polarity from financial-domain word lists:
// (positive - negative) / (positive + negative), zero when no polar word
// appears.
type LexiconSentiment struct {
	positive *Lexicon
	negative *Lexicon
}

var defaultPositiveTerms = []string{
	"achieve", "benefit", "efficient", "exceed", "favorable", "gain",
	"growth", "improve", "innovation", "opportunity", "profit", "profitable",
	"strength", "strong", "success", "successful",
}

var defaultNegativeTerms = []string{
	"adverse", "adversely", "decline", "default", "deficit", "downturn",
	"failure", "impairment", "lawsuit", "litigation", "loss", "penalty",
	"risk", "severe", "unfavorable", "weak", "weakness",
}

func NewLexiconSentiment() *LexiconSentiment {
	return &LexiconSentiment{
		positive: NewLexicon(defaultPositiveTerms),
		negative: NewLexicon(defaultNegativeTerms),
	}
}

func (s *LexiconSentiment) Score(tokens []string) float64 {
	pos := s.positive.Count(tokens)
	neg := s.negative.Count(tokens)
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}
