package models

// FeatureVector is the fixed-schema dense feature set computed per passage.
// Densities and rates are normalized to [0,1]; sentiment lies in [-1,1];
// readability and average sentence length are length-invariant but unbounded.
// A feature whose sub-computation cannot run takes its neutral value (zero)
// rather than null so classifier input stays dense.
type FeatureVector struct {
	DocumentID   string `db:"document_id" json:"document_id"`
	PassageIndex int    `db:"passage_index" json:"passage_index"`

	HedgeDensity     float64 `db:"hedge_density" json:"hedge_density"`
	ModalRate        float64 `db:"modal_rate" json:"modal_rate"`
	VagueDensity     float64 `db:"vague_density" json:"vague_density"`
	PassiveRate      float64 `db:"passive_rate" json:"passive_rate"`
	NumericDensity   float64 `db:"numeric_density" json:"numeric_density"`
	Sentiment        float64 `db:"sentiment" json:"sentiment"`
	Readability      float64 `db:"readability" json:"readability"`
	AvgSentenceLen   float64 `db:"avg_sentence_len" json:"avg_sentence_len"`
	LexicalDiversity float64 `db:"lexical_diversity" json:"lexical_diversity"`
}

// featureNames is the canonical feature order shared by Values and the
// classifiers' dense input block. Changing the order is a breaking change for
// persisted model checkpoints.
var featureNames = []string{
	"hedge_density",
	"modal_rate",
	"vague_density",
	"passive_rate",
	"numeric_density",
	"sentiment",
	"readability",
	"avg_sentence_len",
	"lexical_diversity",
}

// FeatureNames returns the canonical feature order.
func FeatureNames() []string {
	out := make([]string, len(featureNames))
	copy(out, featureNames)
	return out
}

// Key returns the owning passage's identifier.
func (f *FeatureVector) Key() PassageKey {
	return PassageKey{DocumentID: f.DocumentID, PassageIndex: f.PassageIndex}
}

// Values returns the features in canonical order.
func (f *FeatureVector) Values() []float64 {
	return []float64{
		f.HedgeDensity,
		f.ModalRate,
		f.VagueDensity,
		f.PassiveRate,
		f.NumericDensity,
		f.Sentiment,
		f.Readability,
		f.AvgSentenceLen,
		f.LexicalDiversity,
	}
}
