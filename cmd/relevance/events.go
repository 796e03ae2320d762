package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/relevance/internal/bus"
	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
	"github.com/ricesearch/relevance/internal/search"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect and replay the event log",
		Long: `The event log (bus.event_log) records every event published on the
bus: weight updates, evaluation runs and metric observations.`,
	}

	cmd.PersistentFlags().String("log", "", "event log file (default from config)")
	cmd.PersistentFlags().Duration("since", 0, "only entries logged within this window (0 for all)")
	cmd.PersistentFlags().String("topic", "", "only entries on this topic")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print logged events",
		Args:  cobra.NoArgs,
		RunE:  runEventsList,
	}
	list.Flags().IntP("limit", "n", 0, "maximum entries to print (0 for all)")

	replay := &cobra.Command{
		Use:   "replay",
		Short: "Republish logged events on the configured bus",
		Long: `Replay republishes logged events, oldest first, so running servers
re-apply them. Without --topic only weight updates are replayed.`,
		Args: cobra.NoArgs,
		RunE: runEventsReplay,
	}
	replay.Flags().Bool("dry-run", false, "list what would be replayed")

	cmd.AddCommand(list, replay)
	return cmd
}

// readLog resolves the log path and filter from flags and reads the log.
func (a *app) readLog(cmd *cobra.Command, defaultTopic string) ([]bus.LoggedEvent, error) {
	path, _ := cmd.Flags().GetString("log")
	if path == "" {
		path = a.cfg.Bus.EventLog
	}
	if path == "" {
		return nil, apperrors.ValidationError("no event log configured: set bus.event_log or pass --log")
	}

	filter := bus.LogFilter{Topic: defaultTopic}
	if topic, _ := cmd.Flags().GetString("topic"); topic != "" {
		filter.Topic = topic
	}
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		filter.Since = time.Now().Add(-since)
	}
	if cmd.Flags().Lookup("limit") != nil {
		filter.Limit, _ = cmd.Flags().GetInt("limit")
	}
	return bus.ReadEventLog(path, filter)
}

func runEventsList(cmd *cobra.Command, _ []string) error {
	a, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	entries, err := a.readLog(cmd, "")
	if err != nil {
		return err
	}

	if a.format == "json" {
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	printEvents(cmd.OutOrStdout(), entries)
	return nil
}

func runEventsReplay(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	a, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	entries, err := a.readLog(cmd, bus.TopicWeightsUpdated)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if dryRun || len(entries) == 0 {
		printEvents(out, entries)
		return nil
	}

	// Replayed events must not be appended to the log a second time.
	busCfg := a.cfg.Bus
	busCfg.EventLog = ""
	target, err := bus.NewBus(busCfg, a.log)
	if err != nil {
		return err
	}
	defer target.Close()

	if _, ok := target.(*bus.MemoryBus); ok {
		a.log.Warn("Replaying onto the in-memory bus reaches no other process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	n, err := bus.Replay(ctx, target, entries)
	fmt.Fprintf(out, "Replayed %d of %d events\n", n, len(entries))
	return err
}

func printEvents(w io.Writer, entries []bus.LoggedEvent) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No events.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOGGED AT\tTOPIC\tSOURCE\tID")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.LoggedAt.Format(time.RFC3339), e.Topic, e.Event.Source, e.Event.ID)
	}
	tw.Flush()
}

// restoreWeights installs the most recent weight update from the event
// log, so a restarted server resumes with the weights it last served.
func (a *app) restoreWeights() error {
	path := a.cfg.Bus.EventLog
	if path == "" {
		return nil
	}
	entries, err := bus.ReadEventLog(path, bus.LogFilter{Topic: bus.TopicWeightsUpdated})
	if err != nil {
		return err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		w, err := search.DecodeWeights(entries[i].Event.Payload)
		if err != nil {
			a.log.Warn("Skipping unreadable weights event", "event_id", entries[i].Event.ID, "error", err)
			continue
		}
		if err := a.engine.Weights().Store(w); err != nil {
			a.log.Warn("Skipping invalid weights event", "event_id", entries[i].Event.ID, "error", err)
			continue
		}
		a.log.Info("Restored weights from event log", "event_id", entries[i].Event.ID, "logged_at", entries[i].LoggedAt)
		return nil
	}
	return nil
}
