package analysis

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
)

// defaultStopWords is the English and Spanish union used when no stop-word
// file is configured. Entries are normalized on load, so accented forms
// match their stripped tokens.
var defaultStopWords = []string{
	// English
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from",
	"has", "have", "he", "how", "i", "if", "in", "into", "is", "it", "its",
	"me", "my", "no", "not", "of", "on", "or", "our", "she", "so", "such",
	"that", "the", "their", "them", "then", "there", "these", "they", "this",
	"those", "to", "was", "we", "were", "what", "when", "where", "which",
	"who", "why", "will", "with", "you", "your",

	// Spanish
	"al", "como", "con", "de", "del", "el", "ella", "ellas", "ellos", "en",
	"entre", "es", "esta", "este", "esto", "la", "las", "le", "les", "lo",
	"los", "mas", "más", "mi", "mis", "muy", "ni", "nos", "o", "para", "pero",
	"por", "que", "qué", "se", "si", "sin", "sobre", "son", "su", "sus",
	"también", "te", "tu", "tus", "un", "una", "unas", "unos", "y", "ya",
}

// StopWordSet is an immutable set of normalized words excluded from
// tokenization. The zero value is an empty set.
type StopWordSet struct {
	words map[string]struct{}
}

// NewStopWordSet builds a set from words, normalizing each entry.
func NewStopWordSet(words ...string) StopWordSet {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if n := Normalize(w); n != "" {
			set[n] = struct{}{}
		}
	}
	return StopWordSet{words: set}
}

// DefaultStopWords returns the built-in multilingual stop-word set.
func DefaultStopWords() StopWordSet {
	return NewStopWordSet(defaultStopWords...)
}

// Contains reports whether word is a stop word. word must already be normalized.
func (s StopWordSet) Contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

// Len returns the number of words in the set.
func (s StopWordSet) Len() int {
	return len(s.words)
}

// Words returns the set members in sorted order.
func (s StopWordSet) Words() []string {
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// LoadStopWords reads a YAML sequence of words from path.
func LoadStopWords(path string) (StopWordSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StopWordSet{}, apperrors.DictionaryError("reading stop words", err).WithDetail("path", path)
	}

	var words []string
	if err := yaml.Unmarshal(data, &words); err != nil {
		return StopWordSet{}, apperrors.DictionaryError("parsing stop words", err).WithDetail("path", path)
	}

	return NewStopWordSet(words...), nil
}
