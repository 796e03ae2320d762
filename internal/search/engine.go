// Package search ranks documents against free-text queries with a weighted,
// explainable bag-of-words scorer.
package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ricesearch/relevance/internal/analysis"
	"github.com/ricesearch/relevance/internal/metrics"
	"github.com/ricesearch/relevance/internal/pkg/logger"
	"github.com/ricesearch/relevance/internal/pkg/security"
	"github.com/ricesearch/relevance/internal/query"
	"github.com/ricesearch/relevance/internal/synonym"
)

// Points a matched term earns per field, before tier weighting.
const (
	keywordPoints     = 2
	namePoints        = 3
	descriptionPoints = 1
)

// Config configures an Engine. Nil fields get the built-in defaults.
type Config struct {
	Analyzer *analysis.Analyzer
	Expander *synonym.Expander
	Weights  *WeightStore
	Limits   query.Limits
	Recorder *metrics.Recorder
	Logger   *logger.Logger
}

// Engine scores documents. It holds no per-query state and is safe for
// concurrent use.
type Engine struct {
	analyzer *analysis.Analyzer
	expander *synonym.Expander
	weights  *WeightStore
	limits   query.Limits
	recorder *metrics.Recorder
	log      *logger.Logger
}

// NewEngine creates an engine.
func NewEngine(cfg Config) *Engine {
	if cfg.Analyzer == nil {
		cfg.Analyzer = analysis.NewAnalyzer(analysis.DefaultStopWords())
	}
	if cfg.Expander == nil {
		cfg.Expander = synonym.NewExpander(synonym.Default())
	}
	if cfg.Weights == nil {
		cfg.Weights = NewWeightStore(DefaultWeights())
	}
	if cfg.Limits == (query.Limits{}) {
		cfg.Limits = query.DefaultLimits()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}

	return &Engine{
		analyzer: cfg.Analyzer,
		expander: cfg.Expander,
		weights:  cfg.Weights,
		limits:   cfg.Limits,
		recorder: cfg.Recorder,
		log:      cfg.Logger.WithComponent("search"),
	}
}

// Weights returns the engine's live weight store.
func (e *Engine) Weights() *WeightStore {
	return e.weights
}

// Limits returns the parsed-query limits applied by Query.
func (e *Engine) Limits() query.Limits {
	return e.limits
}

// Search ranks docs against rawQuery. A nil w uses the live weights. Every
// document is returned, highest score first; equal scores keep input order.
func (e *Engine) Search(docs []Document, rawQuery string, w *Weights) []Result {
	return e.Rank(NewCollection(docs), rawQuery, w)
}

// Rank is Search over a prepared collection.
func (e *Engine) Rank(c *Collection, rawQuery string, w *Weights) []Result {
	start := time.Now()
	weights := e.resolve(w)

	p := e.Prepare(c, rawQuery)
	results := p.Rank(weights)

	e.record("search", start, p, countPositive(results))
	e.log.Debug("Ranked collection", "query_tokens", len(p.Base), "expanded", len(p.Expanded), "documents", c.Len())

	return results
}

// Prepare analyzes rawQuery and computes every document's match breakdown.
// The result can be ranked under any number of weight sets without
// re-reading the documents.
func (e *Engine) Prepare(c *Collection, rawQuery string) *Prepared {
	base := e.analyzer.Analyze(rawQuery)
	expanded := e.expander.Expand(base)
	synonyms := synonym.PureSynonyms(base, expanded)

	p := &Prepared{
		Base:       base,
		Expanded:   expanded,
		Synonyms:   synonyms,
		collection: c,
		breakdowns: make([]Breakdown, c.Len()),
	}
	for i, d := range c.docs {
		p.breakdowns[i] = explain(d.ID, c.fields[i], base, synonyms, expanded)
	}
	return p
}

// QueryOptions tunes Engine.Query.
type QueryOptions struct {
	// Weights overrides the live weights.
	Weights *Weights

	// Limit caps the number of results; 0 returns all.
	Limit int

	// MaxPerCategory caps results sharing a category; 0 disables the cap.
	MaxPerCategory int

	// IncludeUnmatched keeps documents that scored zero.
	IncludeUnmatched bool
}

// QueryResponse is the outcome of Engine.Query.
type QueryResponse struct {
	Query    string       `json:"query"`
	Parsed   query.Parsed `json:"parsed"`
	Results  []Result     `json:"results"`
	Total    int          `json:"total"`
	Excluded int          `json:"excluded"`
	Clamped  bool         `json:"clamped,omitempty"`
}

// Query runs the full pipeline: parse and clamp the query, drop documents
// that carry a negative term or miss a phrase, rank the survivors on the
// positive terms and phrase words, then apply the exact-match and phrase
// multipliers.
func (e *Engine) Query(ctx context.Context, c *Collection, rawQuery string, opts QueryOptions) *QueryResponse {
	start := time.Now()
	weights := e.resolve(opts.Weights)

	parsed := query.Parse(rawQuery)
	validated := query.Validate(parsed, e.limits)
	clamped := len(validated.Positive) != len(parsed.Positive) ||
		len(validated.Negatives) != len(parsed.Negatives) ||
		len(validated.Phrases) != len(parsed.Phrases)

	survivors := c.filter(func(d Document) bool {
		return !query.NegativeExcluded(d.Keywords, validated) && query.PhrasesCovered(d.Keywords, validated)
	})

	p := e.Prepare(survivors, rankText(validated))
	results := p.rank(weights, func(d Document, score float64) float64 {
		if len(validated.Positive) > 0 && query.PositivesCovered(d.Keywords, validated) {
			score *= weights.ExactMatch
		}
		if len(validated.Phrases) > 0 {
			score *= weights.PhraseMatch
		}
		return score
	})

	results, total := Shape(results, opts)

	excluded := c.Len() - survivors.Len()
	e.recorder.Count(metrics.QueriesParsed, 1)
	if clamped {
		e.recorder.Count(metrics.QueriesClamped, 1)
	}
	if excluded > 0 {
		e.recorder.Count(metrics.ExcludedDocs, float64(excluded))
	}
	e.record("query", start, p, total)

	e.log.WithContext(ctx).Debug("Query completed",
		"query", security.SanitizeForLog(rawQuery),
		"positive", len(validated.Positive),
		"negatives", len(validated.Negatives),
		"phrases", len(validated.Phrases),
		"excluded", excluded,
		"matched", total,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return &QueryResponse{
		Query:    rawQuery,
		Parsed:   validated,
		Results:  results,
		Total:    total,
		Excluded: excluded,
		Clamped:  clamped,
	}
}

// Explanation is the per-field, per-tier account of one document's score.
type Explanation struct {
	Query     string    `json:"query"`
	Base      []string  `json:"base"`
	Expanded  []string  `json:"expanded"`
	Synonyms  []string  `json:"synonyms"`
	Weights   Weights   `json:"weights"`
	Breakdown Breakdown `json:"breakdown"`
	Score     float64   `json:"score"`
}

// Explain scores a single document and reports how the score was reached.
func (e *Engine) Explain(doc Document, rawQuery string, w *Weights) Explanation {
	weights := e.resolve(w)
	p := e.Prepare(NewCollection([]Document{doc}), rawQuery)
	b := p.breakdowns[0]

	return Explanation{
		Query:     rawQuery,
		Base:      p.Base,
		Expanded:  p.Expanded,
		Synonyms:  p.Synonyms,
		Weights:   weights,
		Breakdown: b,
		Score:     b.Score(weights),
	}
}

// Expand returns the analyzed and expanded tokens of rawQuery.
func (e *Engine) Expand(rawQuery string) (base, expanded []string) {
	base = e.analyzer.Analyze(rawQuery)
	return base, e.expander.Expand(base)
}

func (e *Engine) resolve(w *Weights) Weights {
	if w != nil {
		return *w
	}
	return e.weights.Load()
}

func (e *Engine) record(operation string, start time.Time, p *Prepared, matched int) {
	e.recorder.Count(metrics.SearchRequests, 1, "operation", operation)
	e.recorder.Since(metrics.SearchDuration, start, "operation", operation)
	e.recorder.Observe(metrics.SearchMatched, float64(matched), "operation", operation)
	e.recorder.Observe(metrics.ExpansionTerms, float64(len(p.Expanded)))
}

// Prepared is a query analyzed against a collection.
type Prepared struct {
	Base     []string
	Expanded []string
	Synonyms []string

	collection *Collection
	breakdowns []Breakdown
}

// Rank scores every document under w, highest first, ties in collection
// order.
func (p *Prepared) Rank(w Weights) []Result {
	return p.rank(w, nil)
}

// Breakdowns returns the match breakdown of every document in collection
// order.
func (p *Prepared) Breakdowns() []Breakdown {
	return append([]Breakdown(nil), p.breakdowns...)
}

func (p *Prepared) rank(w Weights, adjust func(Document, float64) float64) []Result {
	results := make([]Result, len(p.breakdowns))
	for i, b := range p.breakdowns {
		d := p.collection.docs[i]
		score := b.Score(w)
		if adjust != nil {
			score = adjust(d, score)
		}
		results[i] = Result{DocumentID: d.ID, Score: score, Document: d}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// FieldHits counts the terms matched in each field.
type FieldHits struct {
	Keywords    int `json:"keywords"`
	Name        int `json:"name"`
	Description int `json:"description"`
}

// Points converts hits to unweighted score points.
func (h FieldHits) Points() int {
	return keywordPoints*h.Keywords + namePoints*h.Name + descriptionPoints*h.Description
}

// Breakdown records which terms a document matched and where.
type Breakdown struct {
	DocumentID      string    `json:"document_id"`
	Original        FieldHits `json:"original"`
	Synonym         FieldHits `json:"synonym"`
	KeywordOverlap  int       `json:"keyword_overlap"`
	MatchedTerms    []string  `json:"matched_terms,omitempty"`
	MatchedSynonyms []string  `json:"matched_synonyms,omitempty"`
}

// Score weights the breakdown.
func (b Breakdown) Score(w Weights) float64 {
	return w.Original*float64(b.Original.Points()) +
		w.Synonym*float64(b.Synonym.Points()) +
		w.Keyword*float64(b.KeywordOverlap)
}

func explain(id string, f fields, base, synonyms, expanded []string) Breakdown {
	b := Breakdown{DocumentID: id}

	for _, term := range base {
		if tally(f, term, &b.Original) {
			b.MatchedTerms = append(b.MatchedTerms, term)
		}
	}
	for _, term := range synonyms {
		if tally(f, term, &b.Synonym) {
			b.MatchedSynonyms = append(b.MatchedSynonyms, term)
		}
	}
	for _, kw := range f.keywords {
		if containsAny(kw, expanded) {
			b.KeywordOverlap++
		}
	}
	return b
}

// tally adds one hit per field whose text contains term.
func tally(f fields, term string, h *FieldHits) bool {
	if term == "" {
		return false
	}

	matched := false
	for _, kw := range f.keywords {
		if strings.Contains(kw, term) {
			h.Keywords++
			matched = true
			break
		}
	}
	if strings.Contains(f.name, term) {
		h.Name++
		matched = true
	}
	if strings.Contains(f.description, term) {
		h.Description++
		matched = true
	}
	return matched
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// rankText is the text Query ranks on: positive terms then phrase words.
func rankText(p query.Parsed) string {
	parts := make([]string, 0, len(p.Positive)+len(p.Phrases))
	parts = append(parts, p.Positive...)
	parts = append(parts, p.Phrases...)
	return strings.Join(parts, " ")
}

// Shape applies the result options of opts to a ranking: it drops
// zero-score results unless IncludeUnmatched is set, then applies the
// per-category cap and the limit. total counts the results before capping.
func Shape(results []Result, opts QueryOptions) (shaped []Result, total int) {
	if !opts.IncludeUnmatched {
		results = results[:countPositive(results)]
	}
	total = len(results)
	if opts.MaxPerCategory > 0 {
		results = CapPerCategory(results, opts.MaxPerCategory)
	}
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, total
}

// countPositive returns the length of the positive-score prefix of a
// ranking.
func countPositive(results []Result) int {
	n := 0
	for n < len(results) && results[n].Score > 0 {
		n++
	}
	return n
}

// CapPerCategory keeps at most limit results per category, preserving rank
// order. Uncategorized results are never capped.
func CapPerCategory(results []Result, limit int) []Result {
	if limit <= 0 {
		return results
	}

	counts := make(map[string]int)
	out := make([]Result, 0, len(results))
	for _, r := range results {
		cat := r.Document.Category
		if cat != "" {
			if counts[cat] >= limit {
				continue
			}
			counts[cat]++
		}
		out = append(out, r)
	}
	return out
}
