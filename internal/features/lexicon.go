package features

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Default hedge terms, plus the multi-word hedges common in risk-factor
// sections. Single words are matched with light suffix folding so inflected
// forms ("believes", "estimated") count; phrases are matched verbatim.
var defaultHedgeTerms = []string{
	"may", "might", "could", "possible", "unlikely", "probable",
	"estimate", "expect", "believe", "anticipate", "intend",
	"approximately", "subject to",
}

// Default vagueness terms: qualifiers that blur specificity without hedging
// outright.
var defaultVagueTerms = []string{
	"certain", "various", "significant", "material", "substantially",
	"generally", "approximately", "relatively", "some", "several",
}

// suffixFolds are the inflection suffixes stripped when matching a token
// against single-word lexicon entries.
var suffixFolds = []string{"s", "es", "d", "ed"}

// Lexicon is an immutable term list loaded once at pipeline start and shared
// read-only across workers.
type Lexicon struct {
	words   map[string]struct{}
	phrases [][]string
}

// NewLexicon builds a lexicon from a term list. Entries containing spaces
// become phrases.
func NewLexicon(terms []string) *Lexicon {
	lex := &Lexicon{words: make(map[string]struct{}, len(terms))}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if fields := strings.Fields(term); len(fields) > 1 {
			lex.phrases = append(lex.phrases, fields)
			continue
		}
		lex.words[term] = struct{}{}
	}
	return lex
}

// LoadLexicon reads a term list from a file, one entry per line, '#' starting
// a comment. An empty path yields the given defaults.
func LoadLexicon(path string, defaults []string) (*Lexicon, error) {
	if path == "" {
		return NewLexicon(defaults), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon %s: %w", path, err)
	}
	defer f.Close()

	var terms []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("lexicon %s has no entries", path)
	}
	return NewLexicon(terms), nil
}

// LoadHedgeLexicon loads hedge terms from path, or the built-in list when
// path is empty.
func LoadHedgeLexicon(path string) (*Lexicon, error) {
	return LoadLexicon(path, defaultHedgeTerms)
}

// LoadVagueLexicon loads vagueness terms from path, or the built-in list when
// path is empty.
func LoadVagueLexicon(path string) (*Lexicon, error) {
	return LoadLexicon(path, defaultVagueTerms)
}

// Contains reports whether a lowercase token matches a single-word entry,
// directly or after suffix folding.
func (l *Lexicon) Contains(token string) bool {
	if _, ok := l.words[token]; ok {
		return true
	}
	for _, suffix := range suffixFolds {
		trimmed := strings.TrimSuffix(token, suffix)
		if trimmed == token {
			continue
		}
		if _, ok := l.words[trimmed]; ok {
			return true
		}
	}
	return false
}

// Count returns the number of lexicon hits in the token sequence. A phrase
// occurrence counts once.
func (l *Lexicon) Count(tokens []string) int {
	hits := 0
	for _, tok := range tokens {
		if l.Contains(tok) {
			hits++
		}
	}
	for _, phrase := range l.phrases {
		hits += countPhrase(tokens, phrase)
	}
	return hits
}

func countPhrase(tokens, phrase []string) int {
	if len(phrase) == 0 || len(tokens) < len(phrase) {
		return 0
	}
	hits := 0
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, word := range phrase {
			if tokens[i+j] != word {
				match = false
				break
			}
		}
		if match {
			hits++
		}
	}
	return hits
}

// modalVerbs is the closed class of English modal auxiliaries; not
// configurable.
var modalVerbs = map[string]struct{}{
	"can": {}, "could": {}, "may": {}, "might": {}, "must": {},
	"shall": {}, "should": {}, "will": {}, "would": {},
}

func countModals(tokens []string) int {
	hits := 0
	for _, tok := range tokens {
		if _, ok := modalVerbs[tok]; ok {
			hits++
		}
	}
	return hits
}
