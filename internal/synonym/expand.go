package synonym

import (
	"strings"

	"github.com/ricesearch/relevance/internal/analysis"
)

// Expander widens token sets through a synonym Map.
type Expander struct {
	dict *Map
}

// NewExpander creates an expander over dict. A nil dict expands nothing.
func NewExpander(dict *Map) *Expander {
	return &Expander{dict: dict}
}

// Dictionary returns the expander's synonym map.
func (e *Expander) Dictionary() *Map {
	return e.dict
}

// Expand returns tokens followed by their dictionary alternates, in first-seen
// order and without duplicates. Each token also contributes its stem and the
// stem's alternates, which bridges inflected and cross-language variants that
// share one dictionary entry.
func (e *Expander) Expand(tokens []string) []string {
	expanded := make([]string, 0, len(tokens)*4)
	seen := make(map[string]struct{}, len(tokens)*4)

	add := func(term string) bool {
		if term == "" {
			return false
		}
		if _, ok := seen[term]; ok {
			return false
		}
		seen[term] = struct{}{}
		expanded = append(expanded, term)
		return true
	}

	for _, token := range tokens {
		add(token)
	}

	for _, token := range tokens {
		if token == "" {
			continue
		}
		for _, syn := range e.dict.Lookup(token) {
			add(strings.ToLower(syn))
		}

		stem := analysis.Stem(token)
		if stem != token && add(stem) {
			for _, syn := range e.dict.Lookup(stem) {
				add(strings.ToLower(syn))
			}
		}
	}

	return expanded
}

// PureSynonyms returns the members of expanded that are not in base.
func PureSynonyms(base, expanded []string) []string {
	inBase := make(map[string]struct{}, len(base))
	for _, t := range base {
		inBase[t] = struct{}{}
	}

	out := make([]string, 0, len(expanded))
	for _, t := range expanded {
		if _, ok := inBase[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}
