package trace

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/consumable/internal/events"
)

// Kind identifies what a trace event records.
type Kind string

const (
	// KindRoundStart is emitted before the round-boundary hooks run.
	KindRoundStart Kind = "round_start"
	// KindBoundaryClear records an auto-clear queue being emptied.
	KindBoundaryClear Kind = "boundary_clear"
	// KindBoundaryCompact records consumed records dropped from a
	// compacting persistent queue.
	KindBoundaryCompact Kind = "boundary_compact"
	// KindSystem records a system that ran to completion.
	KindSystem Kind = "system"
	// KindSystemError records a system that returned an error.
	KindSystemError Kind = "system_error"
	// KindManualClear records a clear requested by host-level code.
	KindManualClear Kind = "manual_clear"
	// KindRoundEnd closes a round and carries a snapshot of every queue.
	KindRoundEnd Kind = "round_end"
)

// Event is a single entry in the host trace.
type Event struct {
	RunID    string                  `json:"run_id"`
	RoundID  string                  `json:"round_id"`
	Round    int64                   `json:"round"`
	SubRound int                     `json:"sub_round,omitempty"`
	Seq      int64                   `json:"seq"`
	Kind     Kind                    `json:"kind"`
	System   string                  `json:"system,omitempty"`
	Queue    string                  `json:"queue,omitempty"`
	Removed  int                     `json:"removed,omitempty"`
	Error    string                  `json:"error,omitempty"`
	Queues   map[string]events.Stats `json:"queues,omitempty"`
}

// Tracer receives trace events from the host.
// Implemented by Recorder (in memory) and store.Store (SQLite journal).
type Tracer interface {
	Record(ctx context.Context, ev Event) error
}

// Recorder is an in-memory Tracer.
//
// Thread-safety: Recorder is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends ev.
func (r *Recorder) Record(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Filter returns the recorded events of the given kind, in order.
func (r *Recorder) Filter(kind Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Multi fans events out to several tracers. Every tracer sees every event;
// failures are joined.
type Multi []Tracer

// Record implements Tracer.
func (m Multi) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, t := range m {
		if t == nil {
			continue
		}
		if err := t.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
