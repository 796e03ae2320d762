package evaluation

import (
	"fmt"
	"time"

	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
	"github.com/ricesearch/relevance/internal/pkg/security"
	"github.com/ricesearch/relevance/internal/search"
)

// Sample is a labeled query: the documents expected for it and their graded
// relevance, parallel to ExpectedIDs. A missing Relevance list grades every
// expected document 1.
type Sample struct {
	ID          string   `json:"id,omitempty" yaml:"id"`
	Query       string   `json:"query" yaml:"query"`
	ExpectedIDs []string `json:"expected_ids" yaml:"expected_ids"`
	Relevance   []int    `json:"relevance,omitempty" yaml:"relevance"`
}

// Validate checks the sample's shape.
func (s Sample) Validate() error {
	if len(s.ExpectedIDs) == 0 {
		return apperrors.ValidationError("sample has no expected documents").WithDetail("query", security.SanitizeForLog(s.Query))
	}
	if len(s.Relevance) > 0 && len(s.Relevance) != len(s.ExpectedIDs) {
		return apperrors.ValidationError(fmt.Sprintf("sample has %d relevance grades for %d expected documents",
			len(s.Relevance), len(s.ExpectedIDs))).WithDetail("query", security.SanitizeForLog(s.Query))
	}
	for _, r := range s.Relevance {
		if r < 0 {
			return apperrors.ValidationError("relevance grades must not be negative").WithDetail("query", security.SanitizeForLog(s.Query))
		}
	}
	return nil
}

// grades maps each expected document to its relevance.
func (s Sample) grades() map[string]int {
	g := make(map[string]int, len(s.ExpectedIDs))
	for i, id := range s.ExpectedIDs {
		rel := 1
		if len(s.Relevance) > 0 {
			rel = s.Relevance[i]
		}
		if _, dup := g[id]; !dup {
			g[id] = rel
		}
	}
	return g
}

// ideal returns the judged relevances, one per distinct expected document.
func (s Sample) ideal() []int {
	g := s.grades()
	out := make([]int, 0, len(g))
	for _, rel := range g {
		out = append(out, rel)
	}
	return out
}

// SampleResult contains metrics for a single sample under one weight set.
type SampleResult struct {
	SampleID  string   `json:"sample_id,omitempty"`
	Query     string   `json:"query"`
	Precision float64  `json:"precision"`
	NDCG      float64  `json:"ndcg"`
	Recall    float64  `json:"recall"`
	MRR       float64  `json:"mrr"`
	AP        float64  `json:"ap"` // Average Precision
	Retrieved int      `json:"retrieved"`
	TopIDs    []string `json:"top_ids"`
}

// Combination is a candidate weight set and the mean metrics it achieved.
type Combination struct {
	Index         int            `json:"index"`
	Weights       search.Weights `json:"weights"`
	MeanPrecision float64        `json:"mean_precision"`
	MeanNDCG      float64        `json:"mean_ndcg"`
	MeanRecall    float64        `json:"mean_recall"`
	MeanMRR       float64        `json:"mean_mrr"`
	MAP           float64        `json:"map"`

	// Objective is the mean of MeanPrecision and MeanNDCG; the grid search
	// maximizes it.
	Objective float64 `json:"objective"`
}

// Report is the outcome of a grid search.
type Report struct {
	K            int            `json:"k"`
	Samples      int            `json:"samples"`
	Documents    int            `json:"documents"`
	Combinations int            `json:"combinations"`
	Best         Combination    `json:"best"`
	PerSample    []SampleResult `json:"per_sample"`
	Duration     time.Duration  `json:"duration_ns"`
	GeneratedAt  time.Time      `json:"generated_at"`

	// Fingerprint identifies the documents and samples the run used.
	Fingerprint string `json:"fingerprint"`
}

// summarize aggregates sample results into mean metrics.
func summarize(results []SampleResult) Combination {
	var c Combination
	if len(results) == 0 {
		return c
	}

	for _, r := range results {
		c.MeanPrecision += r.Precision
		c.MeanNDCG += r.NDCG
		c.MeanRecall += r.Recall
		c.MeanMRR += r.MRR
		c.MAP += r.AP
	}

	n := float64(len(results))
	c.MeanPrecision /= n
	c.MeanNDCG /= n
	c.MeanRecall /= n
	c.MeanMRR /= n
	c.MAP /= n
	c.Objective = (c.MeanPrecision + c.MeanNDCG) / 2

	return c
}
