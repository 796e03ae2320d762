package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/relevance/internal/evaluation"
	"github.com/ricesearch/relevance/internal/search"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Grid-search the rank weights against labelled queries",
		Long: `Score every weight combination in the grid by mean Precision@K and
NDCG@K over the labelled samples, then write the winner as a best-weights
record that 'serve' can load.

With --check, the run fails when NDCG@K drops below the baseline record and
the baseline is left untouched.

Examples:
  relevance evaluate
  relevance evaluate --grid grid.yaml --samples samples.json --workers 8
  relevance evaluate --check --baseline best_weights.json`,
		Args: cobra.NoArgs,
		RunE: runEvaluate,
	}

	cmd.Flags().String("samples", "", "labelled samples file (JSON or YAML), default built-in")
	cmd.Flags().String("documents", "", "documents file (JSON or YAML), default built-in")
	cmd.Flags().String("grid", "", "weight grid file (YAML), default built-in")
	cmd.Flags().String("record", "", "where to write the best-weights record (default from config)")
	cmd.Flags().String("baseline", "", "record to compare against with --check (default: --record)")
	cmd.Flags().Bool("check", false, "fail if NDCG regresses against the baseline")
	cmd.Flags().Bool("dry-run", false, "do not write the record")
	cmd.Flags().Int("workers", 0, "parallel workers (default from config)")
	cmd.Flags().Int("k", 0, "rank cutoff (default from config)")
	cmd.Flags().Bool("per-sample", false, "print per-sample metrics for the best combination")

	return cmd
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	samplesPath, _ := cmd.Flags().GetString("samples")
	docsPath, _ := cmd.Flags().GetString("documents")
	gridPath, _ := cmd.Flags().GetString("grid")
	recordPath, _ := cmd.Flags().GetString("record")
	baselinePath, _ := cmd.Flags().GetString("baseline")
	check, _ := cmd.Flags().GetBool("check")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	workers, _ := cmd.Flags().GetInt("workers")
	k, _ := cmd.Flags().GetInt("k")
	perSample, _ := cmd.Flags().GetBool("per-sample")

	a, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ev := a.cfg.Evaluation
	if samplesPath == "" {
		samplesPath = ev.SamplesPath
	}
	if docsPath == "" {
		docsPath = ev.DocumentsPath
	}
	if gridPath == "" {
		gridPath = ev.GridPath
	}
	if recordPath == "" {
		recordPath = ev.RecordPath
	}
	if baselinePath == "" {
		baselinePath = recordPath
	}
	if workers <= 0 {
		workers = ev.Workers
	}
	if k <= 0 {
		k = ev.K
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	svc, err := a.startServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close(a)

	if err := a.buildEngine(svc.metrics.Recorder); err != nil {
		return err
	}

	samples, err := loadSamples(samplesPath)
	if err != nil {
		return err
	}
	grid, err := loadGrid(gridPath)
	if err != nil {
		return err
	}
	docs, err := loadEvaluationDocuments(docsPath)
	if err != nil {
		return err
	}

	var baseline *evaluation.Record
	if check {
		prev, err := evaluation.LoadRecord(baselinePath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			a.log.Warn("No baseline record, skipping regression check", "path", baselinePath)
		case err != nil:
			return err
		default:
			baseline = &prev
		}
	}

	harness := evaluation.NewHarness(a.engine, docs, evaluation.Options{
		K:        k,
		Workers:  workers,
		Recorder: svc.metrics.Recorder,
		Logger:   a.log,
		Bus:      svc.bus,
		Source:   svc.source,
	})

	report, err := harness.Run(ctx, samples, grid)
	if err != nil {
		return err
	}
	record := evaluation.NewRecord(report)

	out := cmd.OutOrStdout()
	if a.format == "json" {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else if err := printReport(out, report, perSample); err != nil {
		return err
	}

	if baseline != nil {
		if baseline.Fingerprint != "" && baseline.Fingerprint != record.Fingerprint {
			a.log.Warn("Baseline was computed over different documents or samples",
				"baseline", baseline.Fingerprint, "current", record.Fingerprint)
		}
		if err := evaluation.CheckRegression(*baseline, record); err != nil {
			return err
		}
		a.log.Info("No regression", "baseline_ndcg", baseline.NDCG, "ndcg", record.NDCG)
	}

	if dryRun || recordPath == "" {
		return nil
	}
	if err := evaluation.WriteRecord(recordPath, record); err != nil {
		return err
	}
	a.log.Info("Wrote weights record", "path", recordPath)
	return nil
}

func loadSamples(path string) ([]evaluation.Sample, error) {
	if path == "" {
		return evaluation.DefaultSamples()
	}
	return evaluation.LoadSamples(path)
}

func loadGrid(path string) (evaluation.Grid, error) {
	if path == "" {
		return evaluation.DefaultGrid(), nil
	}
	return evaluation.LoadGrid(path)
}

// loadEvaluationDocuments uses the built-in documents unless a path is
// given; the labelled samples refer to their IDs.
func loadEvaluationDocuments(path string) ([]search.Document, error) {
	if path == "" {
		return evaluation.DefaultDocuments()
	}
	return search.LoadDocuments(path)
}

func printReport(w io.Writer, r *evaluation.Report, perSample bool) error {
	best := r.Best
	bw := best.Weights

	fmt.Fprintf(w, "Evaluated %d combinations over %d samples and %d documents in %s\n\n",
		r.Combinations, r.Samples, r.Documents, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Best weights (combination %d)\n", best.Index)
	fmt.Fprintf(w, "  original  %.2f\n  synonym   %.2f\n  semantic  %.2f\n  keyword   %.2f\n\n",
		bw.Original, bw.Synonym, bw.Semantic, bw.Keyword)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "P@%d\tNDCG@%d\tRecall@%d\tMRR\tMAP\tOBJECTIVE\n", r.K, r.K, r.K)
	fmt.Fprintf(tw, "%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
		best.MeanPrecision, best.MeanNDCG, best.MeanRecall, best.MeanMRR, best.MAP, best.Objective)
	if err := tw.Flush(); err != nil {
		return err
	}

	if !perSample {
		return nil
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SAMPLE\tQUERY\tP\tNDCG\tRETRIEVED")
	for _, s := range r.PerSample {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%d\n", s.SampleID, s.Query, s.Precision, s.NDCG, s.Retrieved)
	}
	return tw.Flush()
}
