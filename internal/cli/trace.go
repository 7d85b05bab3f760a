package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	RunToken  string
	Extension string // optional: filter to one extension label
}

// TraceResult holds the journal of one run.
type TraceResult struct {
	Run      ir.Run         `json:"run"`
	Timeline []ir.Event     `json:"timeline"`
	Outcomes map[string]int `json:"outcomes"`
}

// HistoryResult holds every journaled event of one extension.
type HistoryResult struct {
	Extension string     `json:"extension"`
	Events    []ir.Event `json:"events"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect the application journal",
		Long: `Show what the extension engine recorded in a journal database.

With --run, prints the timeline of that run: every application, cache hit,
deduplication and refusal in sequence order, plus per-outcome counts.
With only --extension, prints that extension's history across all runs.
With neither, lists the runs in the database.

Examples:
  lineage trace --db ./lineage.db
  lineage trace --db ./lineage.db --run 0192f0c4-...
  lineage trace --db ./lineage.db --run 0192f0c4-... --extension logging_v1
  lineage trace --db ./lineage.db --extension audit --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunToken, "run", "", "run token to trace")
	cmd.Flags().StringVar(&opts.Extension, "extension", "", "filter to one extension label")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	// store.Open would create a missing file.
	if _, err := os.Stat(opts.Database); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	switch {
	case opts.RunToken != "":
		return traceRun(ctx, st, opts, formatter)
	case opts.Extension != "":
		return traceExtension(ctx, st, opts, formatter)
	default:
		return listRuns(ctx, st, formatter)
	}
}

func traceRun(ctx context.Context, st *store.Store, opts *TraceOptions, formatter *OutputFormatter) error {
	run, err := st.ReadRun(ctx, opts.RunToken)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunToken))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	events, err := st.ReadEvents(ctx, opts.RunToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	outcomes, err := st.CountOutcomes(ctx, opts.RunToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count outcomes", err)
	}

	result := TraceResult{
		Run:      run,
		Timeline: filterExtension(events, opts.Extension),
		Outcomes: outcomes,
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Trace for Run: %s\n", run.Token)
	fmt.Fprintf(w, "Manifest: %s\n", run.Manifest)
	if formatter.Verbose {
		fmt.Fprintf(w, "Manifest Digest: %s\n", run.ManifestDigest)
		fmt.Fprintf(w, "Engine: %s (schema %s)\n", run.EngineVersion, run.SchemaVersion)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	writeEvents(formatter, result.Timeline)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Outcomes ===")
	if len(outcomes) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, outcome := range sortedKeys(outcomes) {
		fmt.Fprintf(w, "  %-16s %d\n", outcome+":", outcomes[outcome])
	}
	return nil
}

func traceExtension(ctx context.Context, st *store.Store, opts *TraceOptions, formatter *OutputFormatter) error {
	events, err := st.ReadExtensionHistory(ctx, opts.Extension)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read extension history", err)
	}

	result := HistoryResult{Extension: opts.Extension, Events: events}
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "History for Extension: %s\n", opts.Extension)
	writeEvents(formatter, events)
	return nil
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.JSON() {
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found.")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %s\n", run.Token, run.Manifest)
	}
	return nil
}

// filterExtension keeps the events for one extension label. An empty label
// keeps everything.
func filterExtension(events []ir.Event, label string) []ir.Event {
	if label == "" {
		return events
	}
	out := []ir.Event{}
	for _, ev := range events {
		if ev.Extension == label {
			out = append(out, ev)
		}
	}
	return out
}

func writeEvents(formatter *OutputFormatter, events []ir.Event) {
	w := formatter.Writer
	if len(events) == 0 {
		fmt.Fprintln(w, "  (no events)")
		return
	}

	for _, ev := range events {
		switch {
		case ev.Result != "":
			fmt.Fprintf(w, "  [%d] %s %s on %s -> %s\n", ev.Seq, ev.Outcome, ev.Extension, ev.Class, ev.Result)
		case ev.ErrorCode != "":
			fmt.Fprintf(w, "  [%d] %s %s on %s (%s)\n", ev.Seq, ev.Outcome, ev.Extension, ev.Class, ev.ErrorCode)
		default:
			fmt.Fprintf(w, "  [%d] %s %s on %s\n", ev.Seq, ev.Outcome, ev.Extension, ev.Class)
		}
		if !formatter.Verbose {
			continue
		}
		if ev.RunToken != "" {
			fmt.Fprintf(w, "       Run: %s\n", ev.RunToken)
		}
		if ev.VersionRange != "" {
			fmt.Fprintf(w, "       Range: %s\n", ev.VersionRange)
		}
		if ev.Error != "" {
			fmt.Fprintf(w, "       Error: %s\n", ev.Error)
		}
		fmt.Fprintf(w, "       ID: %s\n", truncateID(ev.ID))
	}
}

// truncateID shortens a hex digest for display.
func truncateID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
