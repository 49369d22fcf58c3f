package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/consumable/internal/store"
	"github.com/roach88/consumable/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Round    int64
	Kind     string
	Verify   string // expected digest
}

// TraceResult holds the events of one journaled run.
type TraceResult struct {
	RunID        string              `json:"run_id"`
	Digest       string              `json:"digest"`
	Events       []trace.Event       `json:"events"`
	Verification *store.Verification `json:"verification,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect journaled runs",
		Long: `List the runs recorded in a trace journal, or print the events of one
run in order.

The digest printed for a run ignores run and round ids, so two runs of
the same scenario can be compared with --verify.

Examples:
  consumable trace --db ./trace.db
  consumable trace --db ./trace.db --run 0193...
  consumable trace --db ./trace.db --run 0193... --round 2 --kind system
  consumable trace --db ./trace.db --run 0193... --verify 6f1c...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace journal")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to print (default: list runs)")
	cmd.Flags().Int64Var(&opts.Round, "round", 0, "only events of this round")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only events of this kind")
	cmd.Flags().StringVar(&opts.Verify, "verify", "", "expected digest; exit 1 when the run differs")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	dbPath := firstNonEmpty(opts.Database, opts.loadedConfig().Trace.Database)
	if dbPath == "" {
		_ = formatter.Error(ErrCodeInvalidInput, "--db is required", nil)
		return NewExitError(ExitCommandError, "--db is required")
	}
	if opts.RunID == "" && (opts.Round != 0 || opts.Kind != "" || opts.Verify != "") {
		_ = formatter.Error(ErrCodeInvalidInput, "--round, --kind and --verify need --run", nil)
		return NewExitError(ExitCommandError, "--round, --kind and --verify need --run")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), map[string]string{"db": dbPath})
		return WrapExitError(ExitCommandError, "failed to open trace journal", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if formatter.Format == "json" {
			return formatter.JSON(CLIResponse{Status: "ok", Data: runs})
		}
		printRuns(formatter.Writer, runs)
		return nil
	}

	digest, _, err := st.DigestRun(ctx, opts.RunID)
	if err != nil {
		_ = formatter.Error(ErrCodeRunNotFound, err.Error(), map[string]string{"run": opts.RunID})
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	var evs []trace.Event
	if opts.Round > 0 {
		evs, err = st.ReadRound(ctx, opts.RunID, opts.Round)
	} else {
		evs, err = st.ReadRun(ctx, opts.RunID)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	if opts.Kind != "" {
		evs = slices.DeleteFunc(evs, func(ev trace.Event) bool {
			return string(ev.Kind) != opts.Kind
		})
	}

	result := TraceResult{RunID: opts.RunID, Digest: digest, Events: evs}
	if opts.Verify != "" {
		v, err := st.VerifyRun(ctx, opts.RunID, opts.Verify)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to verify run", err)
		}
		result.Verification = &v
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result, RunID: opts.RunID}
		if result.Verification != nil && !result.Verification.Match {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeTestFailed, Message: "digest mismatch"}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		printTrace(formatter.Writer, result, opts.Verbose)
	}

	if result.Verification != nil && !result.Verification.Match {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s: digest mismatch", opts.RunID))
	}
	return nil
}

func printRuns(w io.Writer, runs []store.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-40s %8s %8s %8s\n", "RUN", "ROUNDS", "EVENTS", "ERRORS")
	for _, r := range runs {
		fmt.Fprintf(w, "%-40s %8d %8d %8d\n", r.RunID, r.Rounds, r.Events, r.Errors)
	}
}

func printTrace(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Digest: %s\n", result.Digest)
	if v := result.Verification; v != nil {
		if v.Match {
			fmt.Fprintln(w, "✓ digest matches")
		} else {
			fmt.Fprintf(w, "✗ digest mismatch (expected %s)\n", v.Expected)
		}
	}
	fmt.Fprintln(w)

	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
		return
	}
	for _, ev := range result.Events {
		fmt.Fprintf(w, "  %s\n", formatEvent(ev, verbose))
	}
}

// formatEvent renders one event on a single line.
func formatEvent(ev trace.Event, verbose bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s %s", ev.Seq, roundLabel(ev.Round, ev.SubRound), ev.Kind)
	if ev.System != "" {
		fmt.Fprintf(&b, " system=%s", ev.System)
	}
	if ev.Queue != "" {
		fmt.Fprintf(&b, " queue=%s removed=%d", ev.Queue, ev.Removed)
	}
	if ev.Error != "" {
		fmt.Fprintf(&b, " error=%q", ev.Error)
	}
	if verbose {
		for _, name := range slices.Sorted(maps.Keys(ev.Queues)) {
			s := ev.Queues[name]
			fmt.Fprintf(&b, " %s{len=%d unconsumed=%d next_seq=%d}", name, s.Len, s.Unconsumed, s.NextSeq)
		}
		if ev.RoundID != "" {
			fmt.Fprintf(&b, " round_id=%s", ev.RoundID)
		}
	}
	return b.String()
}
