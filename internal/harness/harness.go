package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/consumable/internal/app"
	"github.com/roach88/consumable/internal/trace"
)

// DefaultRunID is the run id used when no other is configured, so that
// repeated runs of one scenario journal identically.
const DefaultRunID = "scenario-run"

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *app.Metrics
	runID   string
	rounds  int
	// subRounds applies only when the scenario leaves sub_rounds unset.
	subRounds int
	tickRate  time.Duration
}

// WithLogger sets the host logger. Defaults to discarding all output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithTracer forwards trace events to t in addition to the in-memory
// recorder (e.g. a store.Store journal).
func WithTracer(t trace.Tracer) Option {
	return func(c *runConfig) {
		c.tracer = t
	}
}

// WithMetrics records host metrics while the scenario runs.
func WithMetrics(m *app.Metrics) Option {
	return func(c *runConfig) {
		c.metrics = m
	}
}

// WithRunID overrides DefaultRunID.
func WithRunID(id string) Option {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithRounds overrides the scenario's round count. Expectations for rounds
// that never run are reported as missing.
func WithRounds(n int) Option {
	return func(c *runConfig) {
		if n > 0 {
			c.rounds = n
		}
	}
}

// WithSubRounds sets the FixedUpdate repeat count for scenarios that do not
// set sub_rounds themselves.
func WithSubRounds(n int) Option {
	return func(c *runConfig) {
		if n > 0 {
			c.subRounds = n
		}
	}
}

// WithTickRate drives the rounds through app.App.Run at the given pace
// instead of calling Update back to back.
func WithTickRate(d time.Duration) Option {
	return func(c *runConfig) {
		c.tickRate = d
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build an app.App with fixed round ids and an in-memory trace recorder
//  2. Register the scenario queue and one system per step
//  3. Call Update once per round, recording observations
//  4. Compare observations and the final queue state with the expectations
//
// Errors from Run itself mean the scenario could not be set up. A scenario
// that runs but does not meet its expectations returns a Result with
// Pass == false.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		runID:  DefaultRunID,
		rounds: scenario.Rounds,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	policy, err := scenario.policy()
	if err != nil {
		return nil, err
	}

	subRounds := scenario.subRounds()
	if scenario.SubRounds == 0 && cfg.subRounds > 0 {
		subRounds = cfg.subRounds
	}

	recorder := trace.NewRecorder()
	tracer := trace.Tracer(recorder)
	if cfg.tracer != nil {
		tracer = trace.Multi{recorder, cfg.tracer}
	}

	appOpts := []app.Option{
		app.WithLogger(cfg.logger),
		app.WithRunID(cfg.runID),
		app.WithRoundIDs(app.NewFixedGenerator(cfg.runID + "-round")),
		app.WithFixedSubRounds(subRounds),
		app.WithTracer(tracer),
	}
	if cfg.tickRate > 0 {
		appOpts = append(appOpts,
			app.WithTickRate(cfg.tickRate),
			app.WithMaxRounds(int64(cfg.rounds)),
		)
	}
	if cfg.metrics != nil {
		appOpts = append(appOpts, app.WithMetrics(cfg.metrics))
	}
	host := app.New(appOpts...)

	regOpts := []app.RegisterOption{app.WithName("values")}
	if scenario.Compaction {
		regOpts = append(regOpts, app.WithCompaction())
	}
	q, err := app.Register[value](host.Registry(), policy, regOpts...)
	if err != nil {
		return nil, fmt.Errorf("register queue: %w", err)
	}

	result := NewResult()
	result.RunID = cfg.runID

	for i := range scenario.Systems {
		sys, err := buildSystem(&scenario.Systems[i], result)
		if err != nil {
			return nil, err
		}
		if err := host.AddSystem(sys); err != nil {
			return nil, fmt.Errorf("add system %q: %w", sys.Name, err)
		}
	}

	cfg.logger.Info("scenario starting",
		"scenario", scenario.Name,
		"policy", policy.String(),
		"rounds", cfg.rounds,
		"sub_rounds", subRounds,
	)

	if cfg.tickRate > 0 {
		// Run logs round errors instead of returning them, so they are
		// collected from the trace afterwards.
		if err := host.Run(ctx); err != nil {
			return nil, err
		}
		for _, ev := range recorder.Filter(trace.KindSystemError) {
			result.AddError(fmt.Sprintf("system %q: %s", ev.System, ev.Error))
		}
	} else {
		for range cfg.rounds {
			if err := host.Update(ctx); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				result.AddError(err.Error())
			}
		}
	}

	result.Final = q.Stats()
	result.Trace = recorder.Events()
	result.Digest, err = trace.Digest(result.Trace)
	if err != nil {
		return nil, fmt.Errorf("digest trace: %w", err)
	}

	for _, failure := range checkExpectations(scenario, result) {
		result.AddError(failure.Error())
	}

	cfg.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"digest", result.Digest,
	)

	return result, nil
}

// buildSystem turns a step into an app.System that appends its observations
// to result.
func buildSystem(st *SystemStep, result *Result) (app.System, error) {
	stage, err := st.stage()
	if err != nil {
		return app.System{}, err
	}

	var access []app.Access
	switch {
	case st.writes() && st.reads():
		access = append(access, app.Uses[value]())
	case st.writes():
		access = append(access, app.Writes[value]())
	case st.reads():
		access = append(access, app.Reads[value]())
	}

	var clearMode app.ClearMode
	if st.Clear != "" {
		if clearMode, err = app.ParseClearMode(st.Clear); err != nil {
			return app.System{}, err
		}
	}

	step := *st
	return app.System{
		Name:   st.Name,
		Stage:  stage,
		Access: access,
		Run: func(c *app.Context) error {
			info := c.Round()
			if len(step.OnlyRounds) > 0 && !slices.Contains(step.OnlyRounds, info.Number) {
				return nil
			}

			if step.writes() {
				if err := send(c, &step); err != nil {
					return err
				}
			}

			if step.reads() {
				seen, err := traverse(c, &step)
				if err != nil {
					return err
				}
				if step.Observe {
					result.Observations = append(result.Observations, Observation{
						Round:    info.Number,
						SubRound: info.SubRound,
						System:   step.Name,
						Values:   seen,
					})
				}
			}

			if step.Clear != "" {
				removed, err := app.ClearFrom[value](c, clearMode)
				if err != nil {
					return err
				}
				c.Logger().Debug("cleared", "mode", clearMode.String(), "removed", removed)
			}
			return nil
		},
	}, nil
}

func send(c *app.Context, st *SystemStep) error {
	if len(st.Send) == 0 && st.SendRange == nil {
		return nil
	}

	w, err := app.WriterOf[value](c)
	if err != nil {
		return err
	}
	for _, n := range st.Send {
		w.Send(value{N: n})
	}
	if st.SendRange != nil {
		w.Extend(func(yield func(value) bool) {
			for n := st.SendRange.From; n < st.SendRange.To; n++ {
				if !yield(value{N: n}) {
					return
				}
			}
		})
	}
	return nil
}

// traverse runs one read pass and returns the values of the events that
// were not consumed, after mutation.
func traverse(c *app.Context, st *SystemStep) ([]int, error) {
	r, err := app.ReaderOf[value](c)
	if err != nil {
		return nil, err
	}

	seen := []int{}
	for ev := range r.Read() {
		if matches(st.Consume, ev.Get().N) {
			ev.Consume()
			continue
		}
		ev.Mutate(func(v *value) {
			if st.Add != 0 {
				v.N += st.Add
			}
			if st.Multiply != 0 {
				v.N *= st.Multiply
			}
			if st.Divide != 0 {
				v.N /= st.Divide
			}
		})
		seen = append(seen, ev.Get().N)
	}
	return seen, nil
}

func matches(filter string, n int) bool {
	switch filter {
	case ConsumeOdd:
		return n%2 != 0
	case ConsumeEven:
		return n%2 == 0
	case ConsumeAll:
		return true
	default:
		return false
	}
}
