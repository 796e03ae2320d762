package analysis

import (
	"strings"
	"unicode/utf8"
)

// Analyzer composes normalization, stop-word removal and stemming.
type Analyzer struct {
	stopWords StopWordSet
}

// NewAnalyzer creates an analyzer that drops the given stop words.
func NewAnalyzer(stopWords StopWordSet) *Analyzer {
	return &Analyzer{stopWords: stopWords}
}

// Tokenize splits already-normalized text on whitespace, drops one-rune
// tokens and stop words, stems the rest and removes duplicates keeping
// first-seen order.
func (a *Analyzer) Tokenize(normalized string) []string {
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))

	for _, field := range fields {
		if utf8.RuneCountInString(field) <= 1 {
			continue
		}
		if a.stopWords.Contains(field) {
			continue
		}

		stemmed := Stem(field)
		if stemmed == "" {
			continue
		}
		if _, dup := seen[stemmed]; dup {
			continue
		}
		seen[stemmed] = struct{}{}
		tokens = append(tokens, stemmed)
	}

	return tokens
}

// Analyze normalizes raw text and tokenizes it.
func (a *Analyzer) Analyze(raw string) []string {
	return a.Tokenize(Normalize(raw))
}

// StopWords returns the analyzer's stop-word set.
func (a *Analyzer) StopWords() StopWordSet {
	return a.stopWords
}
