package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ricesearch/relevance/internal/analysis"
	"github.com/ricesearch/relevance/internal/config"
	"github.com/ricesearch/relevance/internal/evaluation"
	"github.com/ricesearch/relevance/internal/metrics"
	"github.com/ricesearch/relevance/internal/pkg/logger"
	"github.com/ricesearch/relevance/internal/query"
	"github.com/ricesearch/relevance/internal/search"
	"github.com/ricesearch/relevance/internal/synonym"
)

// app holds what every command needs: configuration, a logger and an
// engine built from the configured dictionaries and weights.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	engine *search.Engine
	format string
}

// newApp loads configuration and builds the engine. rec may be nil.
func newApp(cmd *cobra.Command, rec *metrics.Recorder) (*app, error) {
	a, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := a.buildEngine(rec); err != nil {
		return nil, err
	}
	return a, nil
}

func loadConfig(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	format, _ := cmd.Flags().GetString("format")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	// Logs go to stderr so command output stays machine-readable.
	log := logger.NewWithWriter(os.Stderr, level, cfg.Log.Format)

	return &app{cfg: cfg, log: log, format: format}, nil
}

func (a *app) buildEngine(rec *metrics.Recorder) error {
	stopWords := analysis.DefaultStopWords()
	if path := a.cfg.Dictionary.StopWordsPath; path != "" {
		sw, err := analysis.LoadStopWords(path)
		if err != nil {
			return err
		}
		stopWords = sw
	}

	dict := synonym.Default()
	if path := a.cfg.Dictionary.SynonymsPath; path != "" {
		d, err := synonym.Load(path)
		if err != nil {
			return err
		}
		dict = d
	}

	weights, err := a.weights()
	if err != nil {
		return err
	}

	a.engine = search.NewEngine(search.Config{
		Analyzer: analysis.NewAnalyzer(stopWords),
		Expander: synonym.NewExpander(dict),
		Weights:  search.NewWeightStore(weights),
		Limits: query.Limits{
			MaxTerms:      a.cfg.Query.MaxTerms,
			MaxTermLength: a.cfg.Query.MaxTermLength,
		},
		Recorder: rec,
		Logger:   a.log,
	})

	a.log.Debug("Engine ready",
		"stop_words", stopWords.Len(),
		"synonyms", dict.Len(),
		"weights", fmt.Sprintf("%+v", weights),
	)
	return nil
}

// weights returns the configured weights, or the ones in the best-weights
// record when one is configured.
func (a *app) weights() (search.Weights, error) {
	path := a.cfg.Weights.RecordPath
	if path == "" {
		w := search.WeightsFromConfig(a.cfg.Weights)
		return w, w.Validate()
	}

	rec, err := evaluation.LoadRecord(path)
	if err != nil {
		return search.Weights{}, err
	}
	a.log.Info("Loaded weights record", "path", path, "ndcg", rec.NDCG, "generated_at", rec.GeneratedAt)
	return rec.Weights, nil
}

// documents loads path, the configured catalog, or the built-in documents,
// in that order.
func (a *app) documents(path string) ([]search.Document, error) {
	if path == "" {
		path = a.cfg.Catalog.Path
	}
	if path == "" {
		return evaluation.DefaultDocuments()
	}
	return search.LoadDocuments(path)
}
