package features

import (
	"regexp"
	"strings"
)

// tokenRe captures the two token shapes the features care about: numeric
// tokens (digits with optional decimal/thousands separators and a percent
// sign) and word tokens (letters with internal apostrophes or hyphens).
// Currency symbols and other punctuation fall away.
var tokenRe = regexp.MustCompile(`(?:\d+(?:[.,]\d+)*%?)|(?:[a-zA-Z]+(?:['’-][a-zA-Z]+)*)`)

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// Tokenize lowercases and splits text into word and numeric tokens.
func Tokenize(text string) []string {
	matches := tokenRe.FindAllString(text, -1)
	for i, m := range matches {
		matches[i] = strings.ToLower(m)
	}
	return matches
}

// IsNumericToken reports whether a token is a figure rather than a word.
func IsNumericToken(tok string) bool {
	return len(tok) > 0 && tok[0] >= '0' && tok[0] <= '9'
}

func countNumeric(tokens []string) int {
	n := 0
	for _, tok := range tokens {
		if IsNumericToken(tok) {
			n++
		}
	}
	return n
}

// SplitSentences breaks text on terminal punctuation, keeping only parts that
// carry at least one token. Text with no terminal punctuation is a single
// sentence.
func SplitSentences(text string) []string {
	parts := sentenceSplitRe.Split(text, -1)
	out := parts[:0]
	for _, p := range parts {
		if tokenRe.MatchString(p) {
			out = append(out, p)
		}
	}
	return out
}

func typeTokenRatio(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		seen[tok] = struct{}{}
	}
	return float64(len(seen)) / float64(len(tokens))
}

// countSyllables estimates syllables by counting vowel groups, discounting a
// silent trailing 'e'. Never returns less than 1 for a word token.
func countSyllables(word string) int {
	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if count > 1 && strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

// isComplexWord marks words of three or more syllables, the "complex word"
// count used by the fog index. Numeric tokens never count.
func isComplexWord(tok string) bool {
	if IsNumericToken(tok) {
		return false
	}
	return countSyllables(tok) >= 3
}
