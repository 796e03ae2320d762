// Package query parses the boolean-ish search syntax (required terms,
// -excluded terms and "exact phrases") and evaluates the matching
// predicates built on it.
package query

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ricesearch/relevance/internal/analysis"
)

// Parsed is the result of parsing a raw query.
type Parsed struct {
	// Positive are the loose terms, lowercased and diacritic-stripped.
	Positive []string `json:"positive"`

	// Negatives are the -prefixed terms with the hyphen removed.
	Negatives []string `json:"negatives"`

	// Phrases are the quoted spans, folded, with single spaces between words.
	Phrases []string `json:"phrases"`
}

// IsEmpty reports whether the query has no terms of any kind.
func (p Parsed) IsEmpty() bool {
	return len(p.Positive) == 0 && len(p.Negatives) == 0 && len(p.Phrases) == 0
}

var phrasePattern = regexp.MustCompile(`"([^"]*)"`)

// Parse extracts phrases, negatives and positives from raw. It never fails:
// any input, including markup or control characters, is filtered by
// character class and at worst yields an empty Parsed.
//
// Quoted spans become phrases and are cut out of the text, as is any
// other whole-word occurrence of a phrase, before the loose terms are
// read. With an unterminated quote, the words after it are dropped except
// the very last one, which is kept as a positive term.
func Parse(raw string) Parsed {
	phrases := newTermSet()
	positive := newTermSet()
	negatives := newTermSet()

	for _, m := range phrasePattern.FindAllStringSubmatch(raw, -1) {
		if strings.TrimSpace(m[1]) == "" {
			continue
		}
		phrases.add(analysis.Fold(m[1]))
	}
	working := phrasePattern.ReplaceAllString(raw, " ")

	// After pairs are removed at most one quote remains.
	var trailing string
	if i := strings.LastIndexByte(working, '"'); i >= 0 {
		if rest := strings.Fields(analysis.Fold(working[i+1:])); len(rest) > 0 {
			trailing = rest[len(rest)-1]
		}
		working = working[:i]
	}

	tokens := strings.Fields(analysis.Fold(working))
	for _, phrase := range phrases.items {
		tokens = removeRun(tokens, strings.Fields(phrase))
	}

	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok, "-"):
			if word := tok[1:]; startsWithLetterOrDigit(word) {
				negatives.add(word)
			}
		case startsWithLetterOrDigit(tok):
			positive.add(tok)
		}
	}

	if word := strings.TrimPrefix(trailing, "-"); startsWithLetterOrDigit(word) {
		if _, isPhrase := phrases.seen[word]; !isPhrase {
			positive.add(word)
		}
	}

	return Parsed{
		Positive:  positive.items,
		Negatives: negatives.items,
		Phrases:   phrases.items,
	}
}

// removeRun drops every non-overlapping occurrence of words as a
// contiguous run of whole tokens. A hyphenated token never matches a
// plain word, so "-non" and "non-compete" survive a "non compete" phrase.
func removeRun(tokens, words []string) []string {
	n := len(words)
	if n == 0 || n > len(tokens) {
		return tokens
	}
	out := tokens[:0:0]
	for i := 0; i < len(tokens); {
		if i+n <= len(tokens) && equalRun(tokens[i:i+n], words) {
			i += n
			continue
		}
		out = append(out, tokens[i])
		i++
	}
	return out
}

func equalRun(a, b []string) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func startsWithLetterOrDigit(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// termSet is an insertion-ordered set that ignores empty strings.
type termSet struct {
	items []string
	seen  map[string]struct{}
}

func newTermSet() *termSet {
	return &termSet{items: []string{}, seen: make(map[string]struct{})}
}

func (s *termSet) add(term string) {
	if term == "" {
		return
	}
	if _, ok := s.seen[term]; ok {
		return
	}
	s.seen[term] = struct{}{}
	s.items = append(s.items, term)
}
