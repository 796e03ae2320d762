package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/relevance/internal/metrics"
	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
)

func metricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Query the metric history kept in Redis",
		Long: `Read the rolling history written by the redis metrics sink
(metrics.sinks contains "redis"). Series are named metric{label=value,...}.`,
	}

	series := &cobra.Command{
		Use:   "series",
		Short: "List stored series",
		Args:  cobra.NoArgs,
		RunE:  runMetricsSeries,
	}

	history := &cobra.Command{
		Use:   "history <series>",
		Short: "Print the data points of a series",
		Args:  cobra.ExactArgs(1),
		RunE:  runMetricsHistory,
	}
	history.Flags().Duration("since", time.Hour, "how far back to read")

	cmd.AddCommand(series, history)
	return cmd
}

func (a *app) openHistory() (*metrics.RedisStorage, error) {
	m := a.cfg.Metrics
	if m.RedisURL == "" {
		return nil, apperrors.ValidationError("no redis URL configured for metrics history")
	}
	rs, err := metrics.NewRedisStorage(metrics.RedisOptions{
		URL:    m.RedisURL,
		Prefix: m.RedisPrefix,
		TTL:    m.RedisTTL,
	})
	if err != nil {
		return nil, apperrors.MetricsError("opening metrics history", err)
	}
	return rs, nil
}

func runMetricsSeries(cmd *cobra.Command, _ []string) error {
	a, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rs, err := a.openHistory()
	if err != nil {
		return err
	}
	defer rs.Close()

	names, err := rs.MetricNames(cmd.Context())
	if err != nil {
		return err
	}
	sort.Strings(names)

	if a.format == "json" {
		return writeJSON(cmd.OutOrStdout(), names)
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

func runMetricsHistory(cmd *cobra.Command, args []string) error {
	since, _ := cmd.Flags().GetDuration("since")

	a, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rs, err := a.openHistory()
	if err != nil {
		return err
	}
	defer rs.Close()

	points, err := rs.LoadHistory(cmd.Context(), args[0], time.Now().Add(-since))
	if err != nil {
		return err
	}

	if a.format == "json" {
		return writeJSON(cmd.OutOrStdout(), points)
	}
	printHistory(cmd.OutOrStdout(), args[0], points)
	return nil
}

func printHistory(w io.Writer, series string, points []metrics.DataPoint) {
	if len(points) == 0 {
		fmt.Fprintf(w, "No data for %s.\n", series)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tVALUE")
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%g\n", p.Timestamp.Format(time.RFC3339), p.Value)
	}
	tw.Flush()
}
