package ingest

import (
	"regexp"
	"strings"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// minSectionChars filters out table-of-contents hits: a real section body is
// always longer than a heading plus a page number.
const minSectionChars = 100

type sectionRule struct {
	section models.SectionType
	start   *regexp.Regexp
	end     *regexp.Regexp
}

// Section boundaries over the raw filing text. Start headers are matched
// case-sensitively and at their LAST occurrence, because the table of contents
// repeats every heading near the top of the filing. End delimiters are matched
// case-insensitively from just past the header.
var sectionRules = []sectionRule{
	{
		section: models.SectionBusiness,
		start:   regexp.MustCompile(`Item 1\.`),
		end:     regexp.MustCompile(`(?i)Item 1[AB]\.|Item 2\.`),
	},
	{
		section: models.SectionRiskFactors,
		start:   regexp.MustCompile(`Item 1A\.`),
		end:     regexp.MustCompile(`(?i)Item [1B2]\.|Item 3\.`),
	},
	{
		section: models.SectionMDNA,
		start:   regexp.MustCompile(`Item 7\.`),
		end:     regexp.MustCompile(`(?i)Item 7A\.|Item 8\.`),
	},
}

// ExtractSections pulls the raw bodies of Item 1 (Business), Item 1A (Risk
// Factors) and Item 7 (MD&A) out of a filing, in that order. Sections whose
// headers never appear, or whose bodies are heading-sized artifacts, are
// omitted. The returned text is raw; callers clean it per section.
func ExtractSections(text string) []models.TextBlock {
	var blocks []models.TextBlock
	for _, rule := range sectionRules {
		starts := rule.start.FindAllStringIndex(text, -1)
		if starts == nil {
			continue
		}
		last := starts[len(starts)-1]

		searchFrom := last[1]
		endPos := len(text)
		if loc := rule.end.FindStringIndex(text[searchFrom:]); loc != nil {
			endPos = searchFrom + loc[0]
		}

		// Drop the header itself from the body.
		body := strings.TrimSpace(text[last[1]:endPos])
		if len(body) <= minSectionChars {
			continue
		}
		blocks = append(blocks, models.TextBlock{Section: rule.section, Text: body})
	}
	return blocks
}
