package segment

import (
	"fmt"
	"unicode"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// SegmentationError rejects a whole document. The caller drops the document
// and continues with the rest of the batch; there is no partial recovery.
type SegmentationError struct {
	DocumentID string
	Reason     string
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("segment document %s: %s", e.DocumentID, e.Reason)
}

// Segmenter turns a document's section blocks into passages bounded by a
// maximum token count. Section boundaries are the structural cues; blocks
// longer than the limit are tiled into consecutive windows with no overlap,
// which also handles documents that arrive as a single untagged block.
type Segmenter struct {
	maxTokens int
	maxBytes  int
}

func New(maxTokens, maxBytes int) *Segmenter {
	return &Segmenter{maxTokens: maxTokens, maxBytes: maxBytes}
}

// Segment splits doc into ordered, non-overlapping passages. Offsets index
// into doc.Text(); the passages' concatenation reproduces the document text
// modulo whitespace. Empty and oversized documents are rejected.
func (s *Segmenter) Segment(doc *models.Document) ([]models.Passage, error) {
	if s.maxBytes > 0 && doc.Size() > s.maxBytes {
		return nil, &SegmentationError{
			DocumentID: doc.ID,
			Reason:     fmt.Sprintf("document size %d exceeds limit %d", doc.Size(), s.maxBytes),
		}
	}

	var passages []models.Passage
	offset := 0
	for i, block := range doc.Blocks {
		if i > 0 {
			offset++ // joiner space in doc.Text()
		}
		for _, w := range windows(block.Text, s.maxTokens) {
			passages = append(passages, models.Passage{
				DocumentID:   doc.ID,
				PassageIndex: len(passages),
				Section:      block.Section,
				Start:        offset + w.start,
				End:          offset + w.end,
				Text:         block.Text[w.start:w.end],
			})
		}
		offset += len(block.Text)
	}

	if len(passages) == 0 {
		return nil, &SegmentationError{DocumentID: doc.ID, Reason: "empty document"}
	}
	return passages, nil
}

type span struct {
	start, end int
}

// windows groups the whitespace-delimited tokens of s into runs of at most
// maxTokens, returning the byte span each run covers.
func windows(s string, maxTokens int) []span {
	tokens := tokenSpans(s)
	if len(tokens) == 0 {
		return nil
	}

	var out []span
	for i := 0; i < len(tokens); i += maxTokens {
		j := i + maxTokens
		if j > len(tokens) {
			j = len(tokens)
		}
		out = append(out, span{start: tokens[i].start, end: tokens[j-1].end})
	}
	return out
}

func tokenSpans(s string) []span {
	var spans []span
	inToken := false
	start := 0
	for i, r := range s {
		if unicode.IsSpace(r) {
			if inToken {
				spans = append(spans, span{start: start, end: i})
				inToken = false
			}
			continue
		}
		if !inToken {
			start = i
			inToken = true
		}
	}
	if inToken {
		spans = append(spans, span{start: start, end: len(s)})
	}
	return spans
}
