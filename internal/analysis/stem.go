package analysis

import (
	"strings"
	"unicode/utf8"
)

// irregularForms maps inflections the suffix rules would mangle.
var irregularForms = map[string]string{
	"children": "child",
	"men":      "man",
	"women":    "woman",
	"people":   "person",
	"mice":     "mouse",
	"feet":     "foot",
	"teeth":    "tooth",
	"geese":    "goose",
	"leaves":   "leaf",
	"lives":    "life",
	"wives":    "wife",
	"knives":   "knife",
}

// suffixRule strips suffix from tokens longer than minLen runes and
// appends replacement.
type suffixRule struct {
	suffix      string
	minLen      int
	replacement string
}

// Order matters: only the first matching rule applies.
var suffixRules = []suffixRule{
	{suffix: "ies", minLen: 4, replacement: "y"},
	{suffix: "ed", minLen: 3},
	{suffix: "ing", minLen: 4},
	{suffix: "ly", minLen: 3},
	{suffix: "er", minLen: 3},
}

// Stem reduces token to a crude root. Synonym lookups key on these roots,
// so the rules are intentionally simple and must stay stable:
//
//	-ies (len>4) -> -y, -ed (len>3), -ing (len>4), -ly (len>3), -er (len>3),
//	-s (len>2, not -ss)
//
// Tokens shorter than three runes pass through unchanged.
func Stem(token string) string {
	n := utf8.RuneCountInString(token)
	if n < 3 {
		return token
	}

	if base, ok := irregularForms[token]; ok {
		return base
	}

	for _, rule := range suffixRules {
		if n > rule.minLen && strings.HasSuffix(token, rule.suffix) {
			return strings.TrimSuffix(token, rule.suffix) + rule.replacement
		}
	}

	if n > 2 && strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") {
		return strings.TrimSuffix(token, "s")
	}

	return token
}
