package models

// LabelSource records how an evasiveness label was produced. Downstream
// evaluation must be able to separate weakly labeled data from human
// annotations, so the tag travels with the label everywhere.
type LabelSource string

const (
	SourceHuman LabelSource = "human"
	SourceWeak  LabelSource = "weak"
)

// Label carries the two independent supervision signals for a passage.
// Both fields are write-once after construction; classifiers never mutate
// labels.
type Label struct {
	DocumentID   string `db:"document_id" json:"document_id"`
	PassageIndex int    `db:"passage_index" json:"passage_index"`

	// Evasive is 1/0, nil when the passage is unlabeled.
	Evasive *int        `db:"evasive" json:"evasive,omitempty"`
	Source  LabelSource `db:"label_source" json:"label_source,omitempty"`

	// AmbiguityScore is the composite score the weak labeler thresholded.
	// Kept for threshold sweeps; zero for human-labeled passages.
	AmbiguityScore float64 `db:"ambiguity_score" json:"ambiguity_score"`

	// MarketAdverse is nil when no market record covered the document's
	// post-filing window; such documents are excluded from correlation.
	MarketAdverse *bool    `db:"market_adverse" json:"market_adverse,omitempty"`
	ForwardReturn *float64 `db:"forward_return" json:"forward_return,omitempty"`
	WindowDays    int      `db:"window_days" json:"window_days"`
}

// Key returns the owning passage's identifier.
func (l *Label) Key() PassageKey {
	return PassageKey{DocumentID: l.DocumentID, PassageIndex: l.PassageIndex}
}

// HumanAnnotation is one row of researcher-supplied ground truth.
// Authoritative over weak labels wherever present.
type HumanAnnotation struct {
	DocumentID   string `json:"document_id"`
	PassageIndex int    `json:"passage_index"`
	Evasive      int    `json:"evasive"`
	Annotator    string `json:"annotator"`
}

// MarketRecord is one externally supplied price observation.
type MarketRecord struct {
	Ticker string  `json:"ticker"`
	Date   string  `json:"date"` // ISO date, trading days only
	Close  float64 `json:"close"`
}
