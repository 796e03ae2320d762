package search

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/ricesearch/relevance/internal/analysis"
	"github.com/ricesearch/relevance/internal/metrics"
	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
	"github.com/ricesearch/relevance/internal/query"
	"github.com/ricesearch/relevance/internal/synonym"
)

func testEngine(t *testing.T, entries map[string][]string) *Engine {
	t.Helper()
	return NewEngine(Config{
		Analyzer: analysis.NewAnalyzer(analysis.DefaultStopWords()),
		Expander: synonym.NewExpander(synonym.New(entries)),
	})
}

func ids(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.DocumentID
	}
	return out
}

func TestSearch_SynonymBelowLiteral(t *testing.T) {
	e := testEngine(t, map[string][]string{"contract": {"agreement", "deal"}})
	docs := []Document{
		{ID: "synonym", Keywords: []string{"contract"}},
		{ID: "literal", Keywords: []string{"agreement"}},
		{ID: "unrelated", Keywords: []string{"invoice"}},
	}

	results := e.Search(docs, "agreement", nil)
	scores := make(map[string]float64)
	for _, r := range results {
		scores[r.DocumentID] = r.Score
	}

	if scores["synonym"] <= 0 {
		t.Errorf("synonym score = %v, want > 0", scores["synonym"])
	}
	if scores["synonym"] >= scores["literal"] {
		t.Errorf("synonym score %v >= literal score %v", scores["synonym"], scores["literal"])
	}
	if scores["unrelated"] != 0 {
		t.Errorf("unrelated score = %v, want 0", scores["unrelated"])
	}

	want := []string{"literal", "synonym", "unrelated"}
	if got := ids(results); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestSearch_FieldPoints(t *testing.T) {
	e := testEngine(t, nil)
	doc := Document{
		ID:          "emp",
		Name:        "Employment Contract",
		Description: "Standard employment terms",
		Keywords:    []string{"Employment", "hiring"},
	}
	w := Weights{Original: 1, Synonym: 0.5, Keyword: 0.25}

	tests := []struct {
		name  string
		query string
		want  float64
	}{
		// keyword 2 + name 3 + description 1, plus one overlapping keyword
		{"all fields", "employment", 6.25},
		{"name only", "contract", 3},
		{"description only", "standard", 1},
		{"substring of keyword", "hir", 2.25},
		{"no match", "lease", 0},
		{"stop words only", "the and of", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := e.Search([]Document{doc}, tt.query, &w)
			if len(results) != 1 {
				t.Fatalf("Search() returned %d results, want 1", len(results))
			}
			if results[0].Score != tt.want {
				t.Errorf("Search(%q) score = %v, want %v", tt.query, results[0].Score, tt.want)
			}
		})
	}
}

func TestSearch_StableTies(t *testing.T) {
	e := testEngine(t, nil)
	docs := []Document{
		{ID: "zero-a", Keywords: []string{"invoice"}},
		{ID: "tie-1", Keywords: []string{"lease"}},
		{ID: "zero-b"},
		{ID: "tie-2", Keywords: []string{"lease"}},
		{ID: "best", Name: "Lease", Keywords: []string{"lease"}},
		{ID: "tie-3", Keywords: []string{"lease"}},
	}

	want := []string{"best", "tie-1", "tie-2", "tie-3", "zero-a", "zero-b"}
	first := e.Search(docs, "lease", nil)
	if got := ids(first); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}

	for i := 0; i < 5; i++ {
		again := e.Search(docs, "lease", nil)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestSearch_DoesNotMutateInput(t *testing.T) {
	e := testEngine(t, nil)
	docs := []Document{
		{ID: "a"},
		{ID: "b", Keywords: []string{"lease"}},
	}
	e.Search(docs, "lease", nil)

	if docs[0].ID != "a" || docs[1].ID != "b" {
		t.Errorf("input reordered: %v", docs)
	}
}

func TestExplain(t *testing.T) {
	e := testEngine(t, map[string][]string{"contract": {"agreement"}})
	doc := Document{ID: "d", Name: "Agreement", Keywords: []string{"contract", "agreement"}}
	w := Weights{Original: 1, Synonym: 0.5, Keyword: 0.25}

	ex := e.Explain(doc, "contracts", &w)

	if !reflect.DeepEqual(ex.Base, []string{"contract"}) {
		t.Errorf("Base = %v, want [contract]", ex.Base)
	}
	if ex.Breakdown.Original != (FieldHits{Keywords: 1}) {
		t.Errorf("Original = %+v, want one keyword hit", ex.Breakdown.Original)
	}
	if ex.Breakdown.Synonym != (FieldHits{Keywords: 1, Name: 1}) {
		t.Errorf("Synonym = %+v, want keyword and name hits", ex.Breakdown.Synonym)
	}
	if ex.Breakdown.KeywordOverlap != 2 {
		t.Errorf("KeywordOverlap = %d, want 2", ex.Breakdown.KeywordOverlap)
	}
	// 1*2 + 0.5*(2+3) + 0.25*2
	if ex.Score != 5 {
		t.Errorf("Score = %v, want 5", ex.Score)
	}
}

func TestQuery(t *testing.T) {
	e := testEngine(t, nil)
	c := NewCollection([]Document{
		{ID: "match", Keywords: []string{"employment", "non", "compete", "clause"}},
		{ID: "temporary", Keywords: []string{"employment", "non", "compete", "temporary"}},
		{ID: "reversed", Keywords: []string{"employment", "compete", "non"}},
	})

	resp := e.Query(context.Background(), c, `employment "non compete" -temporary`, QueryOptions{})

	wantParsed := query.Parsed{
		Positive:  []string{"employment"},
		Negatives: []string{"temporary"},
		Phrases:   []string{"non compete"},
	}
	if !reflect.DeepEqual(resp.Parsed, wantParsed) {
		t.Errorf("Parsed = %+v, want %+v", resp.Parsed, wantParsed)
	}
	if resp.Excluded != 2 {
		t.Errorf("Excluded = %d, want 2", resp.Excluded)
	}
	if got := ids(resp.Results); !reflect.DeepEqual(got, []string{"match"}) {
		t.Errorf("Results = %v, want [match]", got)
	}
	if resp.Total != 1 {
		t.Errorf("Total = %d, want 1", resp.Total)
	}
}

func TestQuery_Multipliers(t *testing.T) {
	e := testEngine(t, nil)
	c := NewCollection([]Document{
		{ID: "partial", Name: "Lease renewal"},
		{ID: "exact", Keywords: []string{"lease"}},
	})

	neutral := UnitWeights()
	base := e.Query(context.Background(), c, "lease", QueryOptions{Weights: &neutral})

	boosted := UnitWeights()
	boosted.ExactMatch = 2
	got := e.Query(context.Background(), c, "lease", QueryOptions{Weights: &boosted})

	scores := func(r *QueryResponse) map[string]float64 {
		out := make(map[string]float64)
		for _, res := range r.Results {
			out[res.DocumentID] = res.Score
		}
		return out
	}
	b, g := scores(base), scores(got)

	if g["exact"] != 2*b["exact"] {
		t.Errorf("exact score = %v, want %v", g["exact"], 2*b["exact"])
	}
	if g["partial"] != b["partial"] {
		t.Errorf("partial score = %v, want unchanged %v", g["partial"], b["partial"])
	}
}

func TestQuery_DefaultMultipliersMatchSearch(t *testing.T) {
	e := testEngine(t, map[string][]string{"contract": {"agreement"}})
	docs := []Document{
		{ID: "a", Name: "Service agreement", Keywords: []string{"agreement"}},
		{ID: "b", Keywords: []string{"contract", "service"}},
		{ID: "c", Description: "A service contract"},
		{ID: "d", Keywords: []string{"invoice"}},
	}

	plain := e.Search(docs, "service contract", nil)
	resp := e.Query(context.Background(), NewCollection(docs), "service contract", QueryOptions{})

	want := ids(plain[:countPositive(plain)])
	if got := ids(resp.Results); !reflect.DeepEqual(got, want) {
		t.Errorf("Query order = %v, want Search order %v", got, want)
	}
}

func TestQuery_LimitAndCategoryCap(t *testing.T) {
	e := testEngine(t, nil)
	c := NewCollection([]Document{
		{ID: "l1", Category: "lease", Keywords: []string{"rent"}},
		{ID: "l2", Category: "lease", Keywords: []string{"rent"}},
		{ID: "l3", Category: "lease", Keywords: []string{"rent"}},
		{ID: "s1", Category: "sale", Keywords: []string{"rent"}},
		{ID: "u1", Keywords: []string{"rent"}},
	})

	resp := e.Query(context.Background(), c, "rent", QueryOptions{MaxPerCategory: 1})
	if got := ids(resp.Results); !reflect.DeepEqual(got, []string{"l1", "s1", "u1"}) {
		t.Errorf("capped results = %v, want [l1 s1 u1]", got)
	}
	if resp.Total != 5 {
		t.Errorf("Total = %d, want 5", resp.Total)
	}

	resp = e.Query(context.Background(), c, "rent", QueryOptions{Limit: 2})
	if got := ids(resp.Results); !reflect.DeepEqual(got, []string{"l1", "l2"}) {
		t.Errorf("limited results = %v, want [l1 l2]", got)
	}

	resp = e.Query(context.Background(), c, "mortgage", QueryOptions{IncludeUnmatched: true})
	if len(resp.Results) != 5 {
		t.Errorf("IncludeUnmatched returned %d results, want 5", len(resp.Results))
	}
}

func TestQuery_Clamped(t *testing.T) {
	e := NewEngine(Config{Limits: query.Limits{MaxTerms: 2, MaxTermLength: 100}})
	resp := e.Query(context.Background(), NewCollection(nil), "one two three", QueryOptions{})

	if !resp.Clamped {
		t.Error("Clamped = false, want true")
	}
	if len(resp.Parsed.Positive) != 2 {
		t.Errorf("Positive = %v, want 2 terms", resp.Parsed.Positive)
	}
}

func TestEngine_RecordsMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	rec := metrics.NewRecorder(reg, nil, 64)
	e := NewEngine(Config{Recorder: rec})

	docs := []Document{{ID: "a", Keywords: []string{"lease"}}, {ID: "b", Keywords: []string{"temporary"}}}
	e.Search(docs, "lease", nil)
	e.Query(context.Background(), NewCollection(docs), "lease -temporary", QueryOptions{})
	rec.Close()

	if got := reg.CounterValue(metrics.SearchRequests, map[string]string{"operation": "search"}); got != 1 {
		t.Errorf("search requests = %v, want 1", got)
	}
	if got := reg.CounterValue(metrics.SearchRequests, map[string]string{"operation": "query"}); got != 1 {
		t.Errorf("query requests = %v, want 1", got)
	}
	if got := reg.CounterValue(metrics.ExcludedDocs, nil); got != 1 {
		t.Errorf("excluded docs = %v, want 1", got)
	}
}

func TestEngine_NoRecorder(t *testing.T) {
	e := NewEngine(Config{})
	results := e.Search([]Document{{ID: "a", Keywords: []string{"lease"}}}, "lease", nil)
	if len(results) != 1 || results[0].Score <= 0 {
		t.Errorf("Search() = %v, want one positive result", results)
	}
}

func TestCapPerCategory(t *testing.T) {
	results := []Result{
		{DocumentID: "a", Document: Document{Category: "x"}},
		{DocumentID: "b", Document: Document{Category: "x"}},
		{DocumentID: "c", Document: Document{Category: "y"}},
	}

	if got := ids(CapPerCategory(results, 0)); len(got) != 3 {
		t.Errorf("CapPerCategory(0) = %v, want all", got)
	}
	if got := ids(CapPerCategory(results, 1)); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("CapPerCategory(1) = %v, want [a c]", got)
	}
}

func TestShape(t *testing.T) {
	results := []Result{
		{DocumentID: "a", Score: 3, Document: Document{Category: "x"}},
		{DocumentID: "b", Score: 2, Document: Document{Category: "x"}},
		{DocumentID: "c", Score: 1, Document: Document{Category: "y"}},
		{DocumentID: "d", Score: 0, Document: Document{Category: "y"}},
	}

	tests := []struct {
		name      string
		opts      QueryOptions
		wantIDs   []string
		wantTotal int
	}{
		{"defaults drop zero scores", QueryOptions{}, []string{"a", "b", "c"}, 3},
		{"include unmatched", QueryOptions{IncludeUnmatched: true}, []string{"a", "b", "c", "d"}, 4},
		{"limit", QueryOptions{Limit: 2}, []string{"a", "b"}, 3},
		{"category cap then limit", QueryOptions{MaxPerCategory: 1, Limit: 5}, []string{"a", "c"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total := Shape(results, tt.opts)
			if !reflect.DeepEqual(ids(got), tt.wantIDs) {
				t.Errorf("Shape() = %v, want %v", ids(got), tt.wantIDs)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
		})
	}
}

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Weights)
		wantErr bool
	}{
		{"defaults", func(w *Weights) {}, false},
		{"zero", func(w *Weights) { *w = Weights{} }, false},
		{"negative", func(w *Weights) { w.Synonym = -1 }, true},
		{"NaN", func(w *Weights) { w.Keyword = math.NaN() }, true},
		{"infinite", func(w *Weights) { w.Popularity = math.Inf(1) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWeights()
			tt.modify(&w)
			err := w.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.IsValidation(err) {
				t.Errorf("Validate() error = %v, want validation error", err)
			}
		})
	}
}

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	if w.Original <= w.Synonym {
		t.Errorf("Original %v <= Synonym %v", w.Original, w.Synonym)
	}
	if w.ExactMatch != 1 || w.PhraseMatch != 1 {
		t.Errorf("multipliers = %v/%v, want neutral", w.ExactMatch, w.PhraseMatch)
	}
}

func TestWeightStore(t *testing.T) {
	s := NewWeightStore(UnitWeights())

	bad := DefaultWeights()
	bad.Original = -1
	if err := s.Store(bad); err == nil {
		t.Error("Store(negative) error = nil, want error")
	}
	if s.Load().Original != 1 {
		t.Error("rejected weights were installed")
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(func(w Weights) Weights {
				w.Keyword += 1
				w.Recency = w.Keyword
				return w
			})
		}()
	}
	wg.Wait()

	got := s.Load()
	if want := 51.0; got.Keyword != want {
		t.Errorf("Keyword = %v, want %v", got.Keyword, want)
	}
	if got.Recency != got.Keyword {
		t.Errorf("Recency = %v, Keyword = %v: partial update observed", got.Recency, got.Keyword)
	}

	if _, err := s.Update(func(w Weights) Weights { w.Synonym = math.NaN(); return w }); err == nil {
		t.Error("Update(NaN) error = nil, want error")
	}
}

func TestWeightsPatch(t *testing.T) {
	if !(WeightsPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}

	zero, half := 0.0, 0.5
	patch := WeightsPatch{Synonym: &half, Recency: &zero}
	if patch.IsEmpty() {
		t.Error("patch with fields should not be empty")
	}

	got := patch.Apply(UnitWeights())
	want := UnitWeights()
	want.Synonym = 0.5
	want.Recency = 0
	if got != want {
		t.Errorf("Apply() = %+v, want %+v", got, want)
	}

	s := NewWeightStore(UnitWeights())
	neg := -2.0
	if _, err := s.Update(WeightsPatch{Keyword: &neg}.Apply); err == nil {
		t.Error("Update(negative patch) error = nil, want error")
	}
	if s.Load() != UnitWeights() {
		t.Error("rejected patch was installed")
	}
}

func TestDecodeWeights(t *testing.T) {
	w := UnitWeights()

	for _, payload := range []any{w, &w, map[string]any{"original": 1.0, "synonym": 1.0, "semantic": 1.0, "keyword": 1.0,
		"exact_match": 1.0, "phrase_match": 1.0, "fuzzy_match": 1.0, "partial_match": 1.0,
		"language_preference": 1.0, "field_type": 1.0, "recency": 1.0, "popularity": 1.0}} {
		got, err := DecodeWeights(payload)
		if err != nil {
			t.Fatalf("DecodeWeights(%T) error = %v", payload, err)
		}
		if got != w {
			t.Errorf("DecodeWeights(%T) = %+v, want %+v", payload, got, w)
		}
	}

	if _, err := DecodeWeights("nope"); err == nil {
		t.Error("DecodeWeights(string) should fail")
	}
}

func TestLoadDocuments(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "docs.json")
	os.WriteFile(jsonPath, []byte(`[{"id":"a","name":"Lease","keywords":["lease","rent"]}]`), 0644)

	yamlPath := filepath.Join(dir, "docs.yaml")
	os.WriteFile(yamlPath, []byte("- id: b\n  name: Sale\n  category: sale\n  keywords: [sale]\n"), 0644)

	badPath := filepath.Join(dir, "bad.json")
	os.WriteFile(badPath, []byte(`[{"name":"no id"}]`), 0644)

	docs, err := LoadDocuments(jsonPath)
	if err != nil {
		t.Fatalf("LoadDocuments(json) error = %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "a" || len(docs[0].Keywords) != 2 {
		t.Errorf("LoadDocuments(json) = %+v", docs)
	}

	docs, err = LoadDocuments(yamlPath)
	if err != nil {
		t.Fatalf("LoadDocuments(yaml) error = %v", err)
	}
	if len(docs) != 1 || docs[0].Category != "sale" {
		t.Errorf("LoadDocuments(yaml) = %+v", docs)
	}

	if _, err := LoadDocuments(badPath); !apperrors.HasCode(err, apperrors.CodeFixture) {
		t.Errorf("LoadDocuments(bad) error = %v, want fixture error", err)
	}
	if _, err := LoadDocuments(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadDocuments(missing) error = nil, want error")
	}
}

func TestCollection(t *testing.T) {
	docs := []Document{{ID: "a", Name: "First"}, {ID: "b"}, {ID: "a", Name: "Duplicate"}}
	c := NewCollection(docs)
	docs[0].Name = "mutated"

	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	d, ok := c.Get("a")
	if !ok || d.Name != "First" {
		t.Errorf("Get(a) = %+v, %v, want the first copy", d, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) ok = true, want false")
	}
}
