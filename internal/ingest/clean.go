package ingest

import (
	"html"
	"regexp"
	"strings"
)

// Cleaning rules for raw EDGAR-style filing text. Filings arrive as SGML
// envelopes full of HTML markup and XBRL tagging noise; everything here works
// toward plain lowercase narrative text that the segmenter can split.

var (
	textSectionRe = regexp.MustCompile(`(?is)<text>(.*?)</text>`)
	htmlTagRe     = regexp.MustCompile(`(?s)<[^>]+>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)

	// Merged-token repairs: camelCase boundaries and glued digit/letter runs
	// produced by tag stripping.
	camelRe       = regexp.MustCompile(`([a-z])([A-Z])`)
	letterDigitRe = regexp.MustCompile(`([a-zA-Z])(\d)`)
	digitLetterRe = regexp.MustCompile(`(\d)([a-zA-Z])`)

	// "item 1.business" -> "item 1 business"
	itemHeaderRe = regexp.MustCompile(`(?i)(item\s*\d+[a-z]?)\.(\w)`)

	gluedURLRe = regexp.MustCompile(`([a-z])(http)`)
	urlRe      = regexp.MustCompile(`https?://\S+`)
	xbrlTagRe  = regexp.MustCompile(`(?i)\b[a-z]{2,10}:[a-z0-9_\-.]+\b`)
	longIDRe   = regexp.MustCompile(`\b\d{8,12}\b`)
	dateRe     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{2}/\d{2}/\d{4}\b|\b\d{2}-\d{2}-\d{4}\b`)
	durationRe = regexp.MustCompile(`(?i)\bfy\d{2,4}\b|\bp\d+[ymdw]\b|\bp\d+y\d+m?\d*d?\b`)
	footnoteRe = regexp.MustCompile(`[†‡*©®]+`)
	tableNumRe = regexp.MustCompile(`\b\d+\.\d+\b(\s*%)?`)
)

// ExtractText pulls the first <TEXT> section out of a full filing envelope.
// Plain-text inputs without an envelope pass through unchanged.
func ExtractText(raw string) string {
	if m := textSectionRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// CleanText strips markup and normalizes a raw section: HTML tags removed,
// entities decoded, whitespace collapsed, merged tokens repaired, section
// headers normalized, everything lowercased.
func CleanText(text string) string {
	plain := htmlTagRe.ReplaceAllString(text, " ")
	plain = html.UnescapeString(plain)

	plain = whitespaceRe.ReplaceAllString(plain, " ")
	plain = camelRe.ReplaceAllString(plain, "$1 $2")
	plain = letterDigitRe.ReplaceAllString(plain, "$1 $2")
	plain = digitLetterRe.ReplaceAllString(plain, "$1 $2")
	plain = itemHeaderRe.ReplaceAllString(plain, "$1 $2")

	return strings.ToLower(strings.TrimSpace(plain))
}

// RemoveXBRLNoise drops structural artifacts from cleaned text: URLs, XBRL
// tags, CIK-length digit runs, dates, duration codes, footnote symbols, and
// isolated table decimals. Percentages survive; contextual numbers carry
// meaning in narrative text.
func RemoveXBRLNoise(text string) string {
	text = gluedURLRe.ReplaceAllString(text, "$1 $2")
	text = urlRe.ReplaceAllString(text, " ")
	text = xbrlTagRe.ReplaceAllString(text, " ")
	text = longIDRe.ReplaceAllString(text, " ")
	text = dateRe.ReplaceAllString(text, " ")
	text = durationRe.ReplaceAllString(text, " ")
	text = footnoteRe.ReplaceAllString(text, " ")
	text = tableNumRe.ReplaceAllStringFunc(text, func(m string) string {
		if strings.Contains(m, "%") {
			return m
		}
		return " "
	})
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
