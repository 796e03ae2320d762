package query

import "unicode/utf8"

// Default validation limits.
const (
	DefaultMaxTerms      = 50
	DefaultMaxTermLength = 100
)

// Limits caps the size of a parsed query before it is used for ranking.
type Limits struct {
	// MaxTerms is the maximum number of entries kept per list.
	MaxTerms int `yaml:"max_terms" json:"max_terms"`

	// MaxTermLength is the longest term or phrase, in runes, that is kept.
	MaxTermLength int `yaml:"max_term_length" json:"max_term_length"`
}

// DefaultLimits returns the standard limits (50 entries, 100 runes).
func DefaultLimits() Limits {
	return Limits{
		MaxTerms:      DefaultMaxTerms,
		MaxTermLength: DefaultMaxTermLength,
	}
}

// Validate clamps p for untrusted input. Over-long terms and phrases are
// dropped entirely, then each list is truncated to MaxTerms. Non-positive
// limits fall back to the defaults. p is not modified.
func Validate(p Parsed, limits Limits) Parsed {
	if limits.MaxTerms <= 0 {
		limits.MaxTerms = DefaultMaxTerms
	}
	if limits.MaxTermLength <= 0 {
		limits.MaxTermLength = DefaultMaxTermLength
	}

	return Parsed{
		Positive:  clamp(p.Positive, limits),
		Negatives: clamp(p.Negatives, limits),
		Phrases:   clamp(p.Phrases, limits),
	}
}

func clamp(terms []string, limits Limits) []string {
	out := make([]string, 0, min(len(terms), limits.MaxTerms))
	for _, t := range terms {
		if len(out) == limits.MaxTerms {
			break
		}
		if t == "" || utf8.RuneCountInString(t) > limits.MaxTermLength {
			continue
		}
		out = append(out, t)
	}
	return out
}
