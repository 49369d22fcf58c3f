package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/consumable/internal/app"
	"github.com/roach88/consumable/internal/harness"
	"github.com/roach88/consumable/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	MetricsAddr string
	Rounds      int
	RunID       string
	Paced       bool
	Linger      time.Duration

	// RunIDs overrides the run id generator (for testing). Defaults to
	// UUIDv7Generator.
	RunIDs app.IDGenerator
}

// RunResult is the data payload of a run.
type RunResult struct {
	Scenario string          `json:"scenario"`
	Result   *harness.Result `json:"result"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario on the host",
		Long: `Run a single scenario file (YAML or CUE) and print what its systems
observed together with the final queue state.

With --db every trace event is journaled to SQLite and can be inspected
later with "consumable trace". With --metrics-addr the host's Prometheus
metrics are served on /metrics while the scenario runs.

Flags fall back to the config file and CONSUMABLE_* environment variables.

Example:
  consumable run ./testdata/scenarios/consume_odd_add_ten.yaml
  consumable run --db ./trace.db --rounds 10 ./scenario.yaml
  consumable run --metrics-addr :9090 --paced --linger 30s ./scenario.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace journal")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().IntVar(&opts.Rounds, "rounds", 0, "override the scenario's round count")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run id (default: a new UUIDv7)")
	cmd.Flags().BoolVar(&opts.Paced, "paced", false, "run rounds at the configured tick rate")
	cmd.Flags().DurationVar(&opts.Linger, "linger", 0, "keep serving metrics this long after the run")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.loadedConfig()
	logger := opts.logger()

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeScenario, err.Error(), map[string]string{"file": path})
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	formatter.VerboseLog("Loaded scenario %s from %s", scenario.Name, path)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := opts.RunID
	if runID == "" {
		gen := opts.RunIDs
		if gen == nil {
			gen = app.UUIDv7Generator{}
		}
		runID = gen.Generate()
	}

	harnessOpts := []harness.Option{
		harness.WithLogger(logger),
		harness.WithRunID(runID),
		harness.WithSubRounds(cfg.Host.SubRounds),
	}

	rounds := opts.Rounds
	if rounds == 0 && cfg.Host.MaxRounds > 0 {
		rounds = int(cfg.Host.MaxRounds)
	}
	harnessOpts = append(harnessOpts, harness.WithRounds(rounds))

	if opts.Paced {
		harnessOpts = append(harnessOpts, harness.WithTickRate(cfg.Host.TickRate))
	}

	dbPath := firstNonEmpty(opts.Database, cfg.Trace.Database)
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), map[string]string{"db": dbPath})
			return WrapExitError(ExitCommandError, "failed to open trace journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing trace journal", "error", closeErr)
			}
		}()
		harnessOpts = append(harnessOpts, harness.WithTracer(st))
		formatter.VerboseLog("Journaling run %s to %s", runID, dbPath)
	}

	if addr := firstNonEmpty(opts.MetricsAddr, cfg.Metrics.Addr); addr != "" {
		reg := newMetricsRegistry()
		srv, err := startMetricsServer(addr, reg, logger)
		if err != nil {
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to start metrics server", err)
		}
		defer func() {
			linger(ctx, opts.Linger)
			srv.Shutdown(ctx)
		}()
		harnessOpts = append(harnessOpts, harness.WithMetrics(app.NewMetrics(reg)))
		formatter.VerboseLog("Serving metrics on http://%s/metrics", srv.Addr())
	}

	result, err := harness.Run(ctx, scenario, harnessOpts...)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return WrapExitError(ExitFailure, "run interrupted", err)
		}
		_ = formatter.Error(ErrCodeRun, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	if opts.Format == "json" {
		resp := CLIResponse{
			Status: "ok",
			Data:   RunResult{Scenario: scenario.Name, Result: result},
			RunID:  result.RunID,
		}
		if !result.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeTestFailed,
				Message: fmt.Sprintf("%d expectation(s) failed", len(result.Errors)),
			}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		printRunText(cmd.OutOrStdout(), scenario.Name, result, opts.Verbose)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func printRunText(w io.Writer, name string, result *harness.Result, verbose bool) {
	if result.Pass {
		fmt.Fprintf(w, "✓ %s\n", name)
	} else {
		fmt.Fprintf(w, "✗ %s\n", name)
	}
	fmt.Fprintf(w, "  run: %s\n", result.RunID)

	for _, o := range result.Observations {
		fmt.Fprintf(w, "  %s %s: %v\n", roundLabel(o.Round, o.SubRound), o.System, o.Values)
	}

	f := result.Final
	fmt.Fprintf(w, "  final: len=%d unconsumed=%d sent=%d consumed=%d cleared=%d\n",
		f.Len, f.Unconsumed, f.Sent, f.Consumed, f.Cleared)
	if verbose {
		fmt.Fprintf(w, "  digest: %s\n", result.Digest)
		fmt.Fprintf(w, "  trace events: %d\n", len(result.Trace))
	}

	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func roundLabel(round int64, subRound int) string {
	if subRound > 0 {
		return fmt.Sprintf("round %d.%d", round, subRound)
	}
	return fmt.Sprintf("round %d", round)
}

// linger blocks for d or until ctx is done.
func linger(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// commandContext returns cmd's context, or Background when the command runs
// outside Execute (tests calling RunE directly).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
