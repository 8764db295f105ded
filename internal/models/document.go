package models

import (
	"fmt"
	"strings"
	"time"
)

// SectionType classifies where in a filing a block of text came from.
type SectionType string

const (
	SectionBusiness    SectionType = "business"     // Item 1
	SectionRiskFactors SectionType = "risk_factors" // Item 1A
	SectionMDNA        SectionType = "mdna"         // Item 7
	SectionOther       SectionType = "other"
)

// TextBlock is a contiguous run of cleaned filing text with its section tag.
type TextBlock struct {
	Section SectionType `json:"section"`
	Text    string      `json:"text"`
}

// Document is one ingested filing. It is immutable once built; only the
// passages derived from it are persisted downstream.
type Document struct {
	ID         string      `json:"id"` // e.g. "AAPL_10K_2023"
	Ticker     string      `json:"ticker"`
	FilingDate time.Time   `json:"filing_date"`
	Blocks     []TextBlock `json:"blocks"`
}

// Size returns the total byte length of the document's text blocks.
func (d *Document) Size() int {
	n := 0
	for _, b := range d.Blocks {
		n += len(b.Text)
	}
	return n
}

// Text returns the document's full normalized text, blocks joined by a
// single space. Passage offsets index into this string.
func (d *Document) Text() string {
	parts := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, " ")
}

// PassageKey identifies a passage across the whole pipeline.
type PassageKey struct {
	DocumentID   string `db:"document_id" json:"document_id"`
	PassageIndex int    `db:"passage_index" json:"passage_index"`
}

func (k PassageKey) String() string {
	return fmt.Sprintf("%s#%d", k.DocumentID, k.PassageIndex)
}

// Passage is a segmented span of a document, scored independently.
// Start/End are byte offsets into the document's normalized text; passages of
// a document are ordered, non-overlapping, and together cover the whole text.
type Passage struct {
	DocumentID   string      `db:"document_id" json:"document_id"`
	PassageIndex int         `db:"passage_index" json:"passage_index"`
	Section      SectionType `db:"section" json:"section"`
	Start        int         `db:"start_offset" json:"start"`
	End          int         `db:"end_offset" json:"end"`
	Text         string      `db:"text" json:"text"`
}

// Key returns the passage's pipeline-wide identifier.
func (p *Passage) Key() PassageKey {
	return PassageKey{DocumentID: p.DocumentID, PassageIndex: p.PassageIndex}
}
