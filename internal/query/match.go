package query

import (
	"strings"

	"github.com/ricesearch/relevance/internal/analysis"
)

// KeywordTokens flattens keywords into folded whitespace tokens, keeping
// keyword order. No stemming is applied.
func KeywordTokens(keywords []string) []string {
	tokens := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		tokens = append(tokens, strings.Fields(analysis.Fold(kw))...)
	}
	return tokens
}

// NegativeExcluded reports whether any keyword token equals a negative term.
func NegativeExcluded(keywords []string, p Parsed) bool {
	if len(p.Negatives) == 0 {
		return false
	}
	return negativeExcluded(KeywordTokens(keywords), p)
}

// PhrasesCovered reports whether every phrase appears as a contiguous,
// in-order run of keyword tokens. No phrases is always covered.
func PhrasesCovered(keywords []string, p Parsed) bool {
	if len(p.Phrases) == 0 {
		return true
	}
	return phrasesCovered(KeywordTokens(keywords), p)
}

// PositivesCovered reports whether the keyword token set contains every
// positive term exactly.
func PositivesCovered(keywords []string, p Parsed) bool {
	if len(p.Positive) == 0 {
		return true
	}
	return positivesCovered(KeywordTokens(keywords), p)
}

// Matches is the boolean filter: not excluded, all phrases covered and all
// positives present.
func Matches(keywords []string, p Parsed) bool {
	tokens := KeywordTokens(keywords)
	return !negativeExcluded(tokens, p) && phrasesCovered(tokens, p) && positivesCovered(tokens, p)
}

func negativeExcluded(tokens []string, p Parsed) bool {
	for _, tok := range tokens {
		for _, neg := range p.Negatives {
			if tok == neg {
				return true
			}
		}
	}
	return false
}

func phrasesCovered(tokens []string, p Parsed) bool {
	for _, phrase := range p.Phrases {
		if !containsRun(tokens, strings.Fields(phrase)) {
			return false
		}
	}
	return true
}

func positivesCovered(tokens []string, p Parsed) bool {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	for _, term := range p.Positive {
		if _, ok := set[term]; !ok {
			return false
		}
	}
	return true
}

func containsRun(tokens, run []string) bool {
	if len(run) == 0 {
		return true
	}
	for i := 0; i+len(run) <= len(tokens); i++ {
		match := true
		for j, word := range run {
			if tokens[i+j] != word {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
