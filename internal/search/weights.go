package search

import (
	"encoding/json"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/ricesearch/relevance/internal/config"
	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
)

// Weights are the rank multipliers. The four base tiers weight match
// points; the context multipliers scale whole scores in Engine.Query.
type Weights struct {
	Original float64 `json:"original" yaml:"original"`
	Synonym  float64 `json:"synonym" yaml:"synonym"`
	Semantic float64 `json:"semantic" yaml:"semantic"` // reserved; the lexical scorer ignores it
	Keyword  float64 `json:"keyword" yaml:"keyword"`

	ExactMatch         float64 `json:"exact_match" yaml:"exact_match"`
	PhraseMatch        float64 `json:"phrase_match" yaml:"phrase_match"`
	FuzzyMatch         float64 `json:"fuzzy_match" yaml:"fuzzy_match"`
	PartialMatch       float64 `json:"partial_match" yaml:"partial_match"`
	LanguagePreference float64 `json:"language_preference" yaml:"language_preference"`
	FieldType          float64 `json:"field_type" yaml:"field_type"`
	Recency            float64 `json:"recency" yaml:"recency"`
	Popularity         float64 `json:"popularity" yaml:"popularity"`
}

// DefaultWeights returns the serving defaults.
func DefaultWeights() Weights {
	return WeightsFromConfig(config.DefaultWeights())
}

// UnitWeights returns weights with every base tier and multiplier at 1.
func UnitWeights() Weights {
	return Weights{
		Original: 1, Synonym: 1, Semantic: 1, Keyword: 1,
		ExactMatch: 1, PhraseMatch: 1, FuzzyMatch: 1, PartialMatch: 1,
		LanguagePreference: 1, FieldType: 1, Recency: 1, Popularity: 1,
	}
}

// WeightsFromConfig converts the configuration section.
func WeightsFromConfig(c config.WeightsConfig) Weights {
	return Weights{
		Original:           c.Original,
		Synonym:            c.Synonym,
		Semantic:           c.Semantic,
		Keyword:            c.Keyword,
		ExactMatch:         c.ExactMatch,
		PhraseMatch:        c.PhraseMatch,
		FuzzyMatch:         c.FuzzyMatch,
		PartialMatch:       c.PartialMatch,
		LanguagePreference: c.LanguagePreference,
		FieldType:          c.FieldType,
		Recency:            c.Recency,
		Popularity:         c.Popularity,
	}
}

// Validate rejects negative, NaN and infinite weights.
func (w Weights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"original", w.Original}, {"synonym", w.Synonym},
		{"semantic", w.Semantic}, {"keyword", w.Keyword},
		{"exact_match", w.ExactMatch}, {"phrase_match", w.PhraseMatch},
		{"fuzzy_match", w.FuzzyMatch}, {"partial_match", w.PartialMatch},
		{"language_preference", w.LanguagePreference}, {"field_type", w.FieldType},
		{"recency", w.Recency}, {"popularity", w.Popularity},
	}

	for _, f := range fields {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return apperrors.ValidationError(fmt.Sprintf("weight %s must be a finite non-negative number", f.name)).
				WithDetail("field", f.name)
		}
	}
	return nil
}

// WeightStore holds the live weights. Every change replaces the whole
// value, so a reader sees either the old set or the new one.
type WeightStore struct {
	current atomic.Pointer[Weights]
}

// NewWeightStore creates a store holding w.
func NewWeightStore(w Weights) *WeightStore {
	s := &WeightStore{}
	s.current.Store(&w)
	return s
}

// Load returns a snapshot of the current weights.
func (s *WeightStore) Load() Weights {
	return *s.current.Load()
}

// Store validates and installs w.
func (s *WeightStore) Store(w Weights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	s.current.Store(&w)
	return nil
}

// Update applies fn to the current weights and installs the result,
// retrying if another writer got there first. It returns the installed set.
func (s *WeightStore) Update(fn func(Weights) Weights) (Weights, error) {
	for {
		old := s.current.Load()
		next := fn(*old)
		if err := next.Validate(); err != nil {
			return Weights{}, err
		}
		if s.current.CompareAndSwap(old, &next) {
			return next, nil
		}
	}
}

// WeightsPatch is a partial update: nil fields keep their current value.
type WeightsPatch struct {
	Original *float64 `json:"original,omitempty"`
	Synonym  *float64 `json:"synonym,omitempty"`
	Semantic *float64 `json:"semantic,omitempty"`
	Keyword  *float64 `json:"keyword,omitempty"`

	ExactMatch         *float64 `json:"exact_match,omitempty"`
	PhraseMatch        *float64 `json:"phrase_match,omitempty"`
	FuzzyMatch         *float64 `json:"fuzzy_match,omitempty"`
	PartialMatch       *float64 `json:"partial_match,omitempty"`
	LanguagePreference *float64 `json:"language_preference,omitempty"`
	FieldType          *float64 `json:"field_type,omitempty"`
	Recency            *float64 `json:"recency,omitempty"`
	Popularity         *float64 `json:"popularity,omitempty"`
}

type patchField struct {
	src, dst *float64
}

func (p WeightsPatch) fields(w *Weights) []patchField {
	return []patchField{
		{p.Original, &w.Original}, {p.Synonym, &w.Synonym},
		{p.Semantic, &w.Semantic}, {p.Keyword, &w.Keyword},
		{p.ExactMatch, &w.ExactMatch}, {p.PhraseMatch, &w.PhraseMatch},
		{p.FuzzyMatch, &w.FuzzyMatch}, {p.PartialMatch, &w.PartialMatch},
		{p.LanguagePreference, &w.LanguagePreference}, {p.FieldType, &w.FieldType},
		{p.Recency, &w.Recency}, {p.Popularity, &w.Popularity},
	}
}

// IsEmpty reports whether the patch sets no field.
func (p WeightsPatch) IsEmpty() bool {
	for _, f := range p.fields(&Weights{}) {
		if f.src != nil {
			return false
		}
	}
	return true
}

// Apply returns w with the patch's fields overwritten.
func (p WeightsPatch) Apply(w Weights) Weights {
	for _, f := range p.fields(&w) {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	return w
}

// DecodeWeights accepts a Weights value or anything with its JSON form,
// such as an event payload that went through Kafka or the event log.
func DecodeWeights(payload any) (Weights, error) {
	switch v := payload.(type) {
	case Weights:
		return v, nil
	case *Weights:
		if v == nil {
			return Weights{}, fmt.Errorf("nil weights")
		}
		return *v, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Weights{}, err
	}
	var w Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return Weights{}, err
	}
	return w, nil
}
