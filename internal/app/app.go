package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/consumable/internal/events"
	"github.com/roach88/consumable/internal/trace"
)

// DefaultTickRate is the default interval between rounds in Run (~60 Hz).
const DefaultTickRate = 16 * time.Millisecond

// App is the host: it owns the queue registry, schedules systems into
// rounds and runs the round-boundary hooks.
//
// Thread-safety model:
//   - AddSystem / Register*: call during setup, before Run
//   - Update / Run: rounds are serialized; one round runs at a time
//   - ClearAll / ClearConsumed / Stats: safe from any goroutine outside a
//     system; they wait for the queue's lock
//
// INVARIANTS:
//   - Round-boundary hooks run exactly once per round, before any system
//   - Systems run in stage order, then declaration order
//   - A system holds every queue it declared for its whole execution
type App struct {
	registry *Registry
	systems  map[Stage][]*scheduled
	names    map[string]struct{}

	rounds   *Clock // round counter
	traceSeq *Clock // trace event counter
	runID    string
	roundIDs IDGenerator

	subRounds int
	tickRate  time.Duration
	maxRounds int64

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics

	updateMu sync.Mutex
	stopOnce sync.Once
	stop     chan struct{}
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithRegistry uses an existing registry instead of a fresh one.
func WithRegistry(r *Registry) Option {
	return func(a *App) {
		a.registry = r
	}
}

// WithRunID sets the run identifier stamped on trace events.
// Defaults to a UUIDv7.
func WithRunID(id string) Option {
	return func(a *App) {
		a.runID = id
	}
}

// WithRoundIDs sets the round identifier generator.
// Use a FixedGenerator for deterministic tests.
func WithRoundIDs(gen IDGenerator) Option {
	return func(a *App) {
		a.roundIDs = gen
	}
}

// WithFixedSubRounds sets how many times FixedUpdate runs per round.
//
// Default: 1. Zero disables FixedUpdate. Sub-rounds never re-run the
// round-boundary hooks: an auto-clear queue is emptied once per outer round
// no matter how many sub-rounds it contains.
func WithFixedSubRounds(n int) Option {
	return func(a *App) {
		if n >= 0 {
			a.subRounds = n
		}
	}
}

// WithTickRate sets the interval between rounds in Run.
func WithTickRate(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.tickRate = d
		}
	}
}

// WithMaxRounds makes Run return after n rounds. Zero means no limit.
func WithMaxRounds(n int64) Option {
	return func(a *App) {
		a.maxRounds = n
	}
}

// WithTracer sends trace events to t.
func WithTracer(t trace.Tracer) Option {
	return func(a *App) {
		a.tracer = t
	}
}

// WithMetrics records Prometheus metrics for every round.
func WithMetrics(m *Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// New creates an App with no queues and no systems.
func New(opts ...Option) *App {
	a := &App{
		registry:  NewRegistry(),
		systems:   make(map[Stage][]*scheduled),
		names:     make(map[string]struct{}),
		rounds:    NewClock(),
		traceSeq:  NewClock(),
		roundIDs:  UUIDv7Generator{},
		subRounds: 1,
		tickRate:  DefaultTickRate,
		logger:    slog.Default(),
		stop:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.runID == "" {
		a.runID = UUIDv7Generator{}.Generate()
	}

	return a
}

// AddConsumableEvent registers an auto-clear queue for T.
//
// The queue is emptied at the start of every round, so readers that run
// before a writer in the same round never see that writer's events.
func AddConsumableEvent[T any](a *App, opts ...RegisterOption) (*events.Queue[T], error) {
	return Register[T](a.registry, events.AutoClear, opts...)
}

// AddPersistentConsumableEvent registers a persistent queue for T.
//
// Unconsumed events stay readable across rounds. Without WithCompaction the
// queue grows until someone calls ClearConsumed or ClearAll.
func AddPersistentConsumableEvent[T any](a *App, opts ...RegisterOption) (*events.Queue[T], error) {
	return Register[T](a.registry, events.Persistent, opts...)
}

// AddSystem schedules sys. Every queue in sys.Access must already be
// registered.
//
// It is safe to call while Run is ticking; the system joins from the next
// round. It must not be called from inside a system.
func (a *App) AddSystem(sys System) error {
	s, err := resolve(a.registry, sys)
	if err != nil {
		return err
	}

	a.updateMu.Lock()
	defer a.updateMu.Unlock()

	if _, exists := a.names[sys.Name]; exists {
		return &RuntimeError{
			Code:    ErrCodeDuplicateSystem,
			Message: "a system with this name already exists",
			System:  sys.Name,
		}
	}

	a.names[sys.Name] = struct{}{}
	a.systems[sys.Stage] = append(a.systems[sys.Stage], s)
	return nil
}

// Registry returns the app's queue registry.
func (a *App) Registry() *Registry {
	return a.registry
}

// RunID returns the identifier of this run.
func (a *App) RunID() string {
	return a.runID
}

// Round returns the number of the most recently started round.
func (a *App) Round() int64 {
	return a.rounds.Current()
}

// Update runs a single round.
//
// Errors from individual systems are logged and collected; the round keeps
// going and the joined errors are returned at the end. Cancelling ctx stops
// the round before the next system and returns ctx.Err().
func (a *App) Update(ctx context.Context) error {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	info := RoundInfo{Number: a.rounds.Next(), ID: a.roundIDs.Generate()}

	a.logger.Debug("round starting", "round", info.Number, "round_id", info.ID)
	a.emit(ctx, info, trace.Event{Kind: trace.KindRoundStart})

	a.runBoundaryHooks(ctx, info)

	var errs []error
	for _, stage := range stageOrder {
		runs := 1
		if stage == FixedUpdate {
			runs = a.subRounds
		}

		for sub := 1; sub <= runs; sub++ {
			stageInfo := info
			if stage == FixedUpdate {
				stageInfo.SubRound = sub
			}

			for _, sys := range a.systems[stage] {
				if err := ctx.Err(); err != nil {
					return errors.Join(append(errs, err)...)
				}
				if err := a.runSystem(ctx, sys, stageInfo); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}

	snapshot := a.registry.Stats()
	a.emit(ctx, info, trace.Event{Kind: trace.KindRoundEnd, Queues: snapshot})

	if a.metrics != nil {
		a.metrics.observeRound(time.Since(start), snapshot)
	}

	a.logger.Debug("round finished",
		"round", info.Number,
		"systems_failed", len(errs),
		"duration", time.Since(start),
	)

	return errors.Join(errs...)
}

// runBoundaryHooks applies each queue's clearing policy. Auto-clear queues
// are emptied; compacting persistent queues drop consumed records.
func (a *App) runBoundaryHooks(ctx context.Context, info RoundInfo) {
	for _, e := range a.registry.snapshot() {
		var (
			kind    trace.Kind
			removed int
		)

		e.mu.Lock()
		switch {
		case e.policy == events.AutoClear:
			kind = trace.KindBoundaryClear
			removed = e.clear()
		case e.compact:
			kind = trace.KindBoundaryCompact
			removed = e.clearConsumed()
		}
		e.mu.Unlock()

		if kind == "" {
			continue
		}
		e.boundaryRuns.Add(1)

		if removed > 0 {
			a.logger.Debug("round boundary cleared queue",
				"round", info.Number,
				"queue", e.name,
				"policy", e.policy.String(),
				"removed", removed,
			)
		}
		a.emit(ctx, info, trace.Event{Kind: kind, Queue: e.name, Removed: removed})
		if a.metrics != nil {
			a.metrics.observeClear(e.name, "boundary", removed)
		}
	}
}

// runSystem executes one system while holding every queue it declared.
func (a *App) runSystem(ctx context.Context, sys *scheduled, info RoundInfo) error {
	c := &Context{
		ctx:    ctx,
		app:    a,
		system: sys,
		round:  info,
		logger: a.logger.With("system", sys.Name, "round", info.Number),
	}

	err := func() error {
		sys.lock()
		defer sys.unlock()
		return sys.Run(c)
	}()

	if err != nil {
		a.logger.Error("system failed",
			"system", sys.Name,
			"stage", sys.Stage.String(),
			"round", info.Number,
			"sub_round", info.SubRound,
			"error", err,
		)
		a.emit(ctx, info, trace.Event{Kind: trace.KindSystemError, System: sys.Name, Error: err.Error()})
		if a.metrics != nil {
			a.metrics.observeSystemError(sys.Name)
		}
		return newSystemError(sys.Name, info.Number, err)
	}

	a.emit(ctx, info, trace.Event{Kind: trace.KindSystem, System: sys.Name})
	return nil
}

// emit stamps ev with run, round and sequence numbers and hands it to the
// tracer. Tracer failures are logged, never propagated.
func (a *App) emit(ctx context.Context, info RoundInfo, ev trace.Event) {
	if a.tracer == nil {
		return
	}

	ev.RunID = a.runID
	ev.RoundID = info.ID
	ev.Round = info.Number
	ev.SubRound = info.SubRound
	ev.Seq = a.traceSeq.Next()

	if err := a.tracer.Record(ctx, ev); err != nil {
		a.logger.Warn("trace record failed", "kind", ev.Kind, "seq", ev.Seq, "error", err)
	}
}

// Run calls Update once per tick until ctx is cancelled, Stop is called or
// the WithMaxRounds limit is reached.
//
// A round that ends with system errors is logged and the loop continues.
// Returns ctx.Err() on cancellation and nil otherwise.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("host starting",
		"run_id", a.runID,
		"queues", a.registry.Len(),
		"tick_rate", a.tickRate,
		"sub_rounds", a.subRounds,
		"max_rounds", a.maxRounds,
	)

	ticker := time.NewTicker(a.tickRate)
	defer ticker.Stop()

	for {
		if err := a.Update(ctx); err != nil {
			if ctx.Err() != nil {
				a.logger.Info("host stopping: context cancelled", "round", a.rounds.Current())
				return ctx.Err()
			}
			a.logger.Error("round finished with errors", "round", a.rounds.Current(), "error", err)
		}

		if a.maxRounds > 0 && a.rounds.Current() >= a.maxRounds {
			a.logger.Info("host stopping: round limit reached", "rounds", a.rounds.Current())
			return nil
		}

		select {
		case <-a.stop:
			a.logger.Info("host stopping: stop requested", "round", a.rounds.Current())
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			a.logger.Info("host stopping: context cancelled", "round", a.rounds.Current())
			return ctx.Err()
		case <-a.stop:
			a.logger.Info("host stopping: stop requested", "round", a.rounds.Current())
			return nil
		case <-ticker.C:
		}
	}
}

// Stop makes Run return after the current round.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		close(a.stop)
	})
}

// BoundaryRuns returns how many times the round-boundary hook has run for
// the queue of payload type T.
func BoundaryRuns[T any](a *App) (int64, error) {
	return a.registry.BoundaryRuns(KeyOf[T]())
}
