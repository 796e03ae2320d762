// Package evaluation measures ranking quality against labeled queries and
// searches a grid of tier weights for the combination that ranks them best.
package evaluation

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ricesearch/relevance/internal/bus"
	"github.com/ricesearch/relevance/internal/metrics"
	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
	"github.com/ricesearch/relevance/internal/pkg/hash"
	"github.com/ricesearch/relevance/internal/pkg/logger"
	"github.com/ricesearch/relevance/internal/search"
)

// DefaultK is the rank cutoff of Precision@k and NDCG@k.
const DefaultK = 10

// Options configures a Harness.
type Options struct {
	K        int
	Workers  int
	Recorder *metrics.Recorder
	Logger   *logger.Logger

	// Bus receives an evaluation.completed event after every run. Optional.
	Bus    bus.Bus
	Source string
}

// Harness scores weight combinations over a fixed document collection.
type Harness struct {
	engine     *search.Engine
	collection *search.Collection
	k          int
	workers    int
	recorder   *metrics.Recorder
	bus        bus.Bus
	source     string
	log        *logger.Logger
}

// NewHarness creates a harness over docs.
func NewHarness(engine *search.Engine, docs []search.Document, opts Options) *Harness {
	if opts.K <= 0 {
		opts.K = DefaultK
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	return &Harness{
		engine:     engine,
		collection: search.NewCollection(docs),
		k:          opts.K,
		workers:    opts.Workers,
		recorder:   opts.Recorder,
		bus:        opts.Bus,
		source:     opts.Source,
		log:        opts.Logger.WithComponent("evaluation"),
	}
}

// K returns the rank cutoff.
func (h *Harness) K() int {
	return h.k
}

// Run scores every grid combination over samples and reports the best.
// Combinations are scored in parallel; the first combination in grid order
// wins ties.
func (h *Harness) Run(ctx context.Context, samples []Sample, grid Grid) (*Report, error) {
	start := time.Now()

	if len(samples) == 0 {
		return nil, apperrors.ValidationError("no samples to evaluate")
	}
	for _, s := range samples {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	fingerprint, err := hash.Fingerprint(h.collection.Documents(), samples)
	if err != nil {
		return nil, apperrors.InternalError("fingerprinting fixtures", err)
	}

	// Breakdowns do not depend on weights, so each query is analyzed once.
	prepared := make([]*search.Prepared, len(samples))
	for i, s := range samples {
		prepared[i] = h.engine.Prepare(h.collection, s.Query)
	}

	combos := grid.Combinations(h.engine.Weights().Load())
	scored := make([]Combination, len(combos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)
	for i, w := range combos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := summarize(h.evaluateAll(samples, prepared, w))
			c.Index = i
			c.Weights = w
			scored[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTimeout, "evaluation cancelled", err)
	}

	best := scored[0]
	for _, c := range scored[1:] {
		if c.Objective > best.Objective {
			best = c
		}
	}

	report := &Report{
		K:            h.k,
		Samples:      len(samples),
		Documents:    h.collection.Len(),
		Combinations: len(combos),
		Best:         best,
		PerSample:    h.evaluateAll(samples, prepared, best.Weights),
		Duration:     time.Since(start),
		GeneratedAt:  time.Now().UTC(),
		Fingerprint:  fingerprint,
	}

	h.recorder.Count(metrics.EvaluationRuns, 1)
	h.recorder.Count(metrics.EvaluationCombinations, float64(len(combos)))
	h.recorder.Since(metrics.EvaluationDuration, start)
	h.recorder.Set(metrics.EvaluationBestNDCG, best.MeanNDCG)
	h.recorder.Set(metrics.EvaluationBestScore, best.Objective)

	h.log.WithContext(ctx).Info("Evaluation completed",
		"samples", len(samples),
		"combinations", len(combos),
		"best_index", best.Index,
		"precision", best.MeanPrecision,
		"ndcg", best.MeanNDCG,
		"duration_ms", report.Duration.Milliseconds(),
	)

	h.publish(ctx, report)
	return report, nil
}

func (h *Harness) publish(ctx context.Context, report *Report) {
	if h.bus == nil {
		return
	}
	event := bus.NewEvent(bus.TypeEvaluationCompleted, h.source, NewRecord(report))
	if err := h.bus.Publish(ctx, bus.TopicEvaluationCompleted, event); err != nil {
		h.log.WithError(err).Warn("Failed to publish evaluation result")
	}
}

// evaluateAll ranks every sample under w.
func (h *Harness) evaluateAll(samples []Sample, prepared []*search.Prepared, w search.Weights) []SampleResult {
	results := make([]SampleResult, len(samples))
	for i, s := range samples {
		results[i] = EvaluateRanking(s, retrieved(prepared[i].Rank(w)), h.k)
	}
	return results
}

// retrieved returns the IDs of results with a positive score, in rank order.
func retrieved(results []search.Result) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.Score <= 0 {
			break
		}
		ids = append(ids, r.DocumentID)
	}
	return ids
}

// EvaluateRanking computes the metrics of one sample for a ranked list of
// document IDs. A document counts once, at its first rank.
func EvaluateRanking(s Sample, ranking []string, k int) SampleResult {
	grades := s.grades()

	hits := make([]bool, 0, len(ranking))
	gains := make([]int, 0, len(ranking))
	seen := make(map[string]struct{}, len(ranking))
	for _, id := range ranking {
		if _, dup := seen[id]; dup {
			hits = append(hits, false)
			gains = append(gains, 0)
			continue
		}
		seen[id] = struct{}{}
		rel, ok := grades[id]
		hits = append(hits, ok)
		gains = append(gains, rel)
	}

	top := ranking
	if len(top) > k {
		top = top[:k]
	}

	return SampleResult{
		SampleID:  s.ID,
		Query:     s.Query,
		Precision: Precision(hits, k),
		NDCG:      NDCG(gains, s.ideal(), k),
		Recall:    Recall(hits, k, len(grades)),
		MRR:       MRR(hits),
		AP:        AveragePrecision(hits, len(grades)),
		Retrieved: len(ranking),
		TopIDs:    append([]string(nil), top...),
	}
}
