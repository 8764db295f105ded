package ingest

import (
	"strings"
	"testing"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "sgml envelope",
			raw:      "<SEC-DOCUMENT>header junk<TEXT>the filing body</TEXT>trailer</SEC-DOCUMENT>",
			expected: "the filing body",
		},
		{
			name:     "lowercase tags",
			raw:      "<text>Body here</text>",
			expected: "Body here",
		},
		{
			name:     "first of several sections",
			raw:      "<TEXT>one</TEXT><TEXT>two</TEXT>",
			expected: "one",
		},
		{
			name:     "plain text passes through",
			raw:      "  no envelope at all  ",
			expected: "no envelope at all",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractText(tt.raw); got != tt.expected {
				t.Errorf("ExtractText() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "strips html tags",
			text:     "<p>The Company</p>",
			expected: "the company",
		},
		{
			name:     "decodes entities",
			text:     "Risk &amp; Reward",
			expected: "risk & reward",
		},
		{
			name:     "collapses whitespace",
			text:     "a  b\n\n\tc",
			expected: "a b c",
		},
		{
			name:     "splits camel case merges",
			text:     "significantRisk factors",
			expected: "significant risk factors",
		},
		{
			name:     "splits letter digit merges",
			text:     "fiscal2023 and 2023revenue",
			expected: "fiscal 2023 and 2023 revenue",
		},
		{
			name:     "normalizes item headers",
			text:     "Item 1.Business and Item 7.Management",
			expected: "item 1 business and item 7 management",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.text); got != tt.expected {
				t.Errorf("CleanText(%q) = %q, want %q", tt.text, got, tt.expected)
			}
		})
	}
}

func TestRemoveXBRLNoise(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "removes urls and unglues them",
			text:     "liabilitiesnoncurrenthttp://fasb.org/us-gaap/2023 remain",
			expected: "liabilitiesnoncurrent remain",
		},
		{
			name:     "removes xbrl tags",
			text:     "per aapl:deferredrevenue the balance",
			expected: "per the balance",
		},
		{
			name:     "removes long ids",
			text:     "cik 0000320193 filed",
			expected: "cik filed",
		},
		{
			name:     "removes dates",
			text:     "as of 2023-09-30 and 12/31/2023 we",
			expected: "as of and we",
		},
		{
			name:     "removes durations",
			text:     "during fy2023 over p10y and p6m terms",
			expected: "during over and terms",
		},
		{
			name:     "removes footnote symbols",
			text:     "net sales† grew",
			expected: "net sales grew",
		},
		{
			name:     "drops bare decimals keeps percentages",
			text:     "a ratio of 4.12 versus growth of 5.2% and 3.1 %",
			expected: "a ratio of versus growth of 5.2% and 3.1 %",
		},
		{
			name:     "keeps plain integers",
			text:     "we operate 523 stores",
			expected: "we operate 523 stores",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemoveXBRLNoise(tt.text); got != tt.expected {
				t.Errorf("RemoveXBRLNoise(%q) = %q, want %q", tt.text, got, tt.expected)
			}
		})
	}
}

func TestExtractSections(t *testing.T) {
	toc := "Item 1. Business 3 Item 1A. Risk Factors 15 Item 7. Management's Discussion 40 "
	business := "Item 1. Business " + strings.Repeat("we design and sell products across global markets. ", 4)
	risk := "Item 1A. Risk Factors " + strings.Repeat("our operations face significant competitive pressure. ", 4)
	properties := "Item 2. Properties we lease corporate offices. "
	mda := "Item 7. Management's Discussion and Analysis " + strings.Repeat("revenue grew over the prior fiscal year in every segment. ", 4)
	tail := "Item 7A. Quantitative and Qualitative Disclosures Item 8. Financial Statements"

	text := toc + business + risk + properties + mda + tail
	blocks := ExtractSections(text)

	if len(blocks) != 3 {
		t.Fatalf("ExtractSections() returned %d blocks, want 3", len(blocks))
	}

	if blocks[0].Section != models.SectionBusiness {
		t.Errorf("blocks[0].Section = %q, want %q", blocks[0].Section, models.SectionBusiness)
	}
	if !strings.Contains(blocks[0].Text, "we design and sell") {
		t.Errorf("business block missing body text: %q", blocks[0].Text)
	}
	if strings.Contains(blocks[0].Text, "Risk Factors 15") {
		t.Errorf("business block captured the table of contents: %q", blocks[0].Text)
	}
	if strings.Contains(blocks[0].Text, "competitive pressure") {
		t.Errorf("business block ran into the next section: %q", blocks[0].Text)
	}

	if blocks[1].Section != models.SectionRiskFactors {
		t.Errorf("blocks[1].Section = %q, want %q", blocks[1].Section, models.SectionRiskFactors)
	}
	if !strings.Contains(blocks[1].Text, "competitive pressure") {
		t.Errorf("risk block missing body text: %q", blocks[1].Text)
	}
	if strings.Contains(blocks[1].Text, "lease corporate offices") {
		t.Errorf("risk block ran into Item 2: %q", blocks[1].Text)
	}

	if blocks[2].Section != models.SectionMDNA {
		t.Errorf("blocks[2].Section = %q, want %q", blocks[2].Section, models.SectionMDNA)
	}
	if !strings.Contains(blocks[2].Text, "revenue grew") {
		t.Errorf("mda block missing body text: %q", blocks[2].Text)
	}
	if strings.Contains(blocks[2].Text, "Quantitative") {
		t.Errorf("mda block ran into Item 7A: %q", blocks[2].Text)
	}
}

func TestExtractSectionsNoHeaders(t *testing.T) {
	blocks := ExtractSections("a letter to shareholders with no item headings at all")
	if len(blocks) != 0 {
		t.Errorf("ExtractSections() = %d blocks, want 0", len(blocks))
	}
}

func TestExtractSectionsSkipsShortBodies(t *testing.T) {
	text := "Item 1. Business brief. Item 2. Properties also brief."
	blocks := ExtractSections(text)
	if len(blocks) != 0 {
		t.Errorf("ExtractSections() kept heading-sized bodies: %d blocks", len(blocks))
	}
}
