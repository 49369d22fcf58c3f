package app

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/roach88/consumable/internal/events"
)

// KeyOf returns the registry key for payload type T.
func KeyOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// RegisterOption configures a queue registration.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	name    string
	compact bool
}

// WithName overrides the queue's display name used in logs, traces and
// metrics. Defaults to the payload type's Go name (e.g. "main.Click").
func WithName(name string) RegisterOption {
	return func(o *registerOptions) {
		o.name = name
	}
}

// WithCompaction makes the round-boundary hook drop consumed records from a
// persistent queue. Readers cannot tell the difference; it only bounds
// memory. Ignored for auto-clear queues, which are emptied anyway.
func WithCompaction() RegisterOption {
	return func(o *registerOptions) {
		o.compact = true
	}
}

// entry is one registered queue plus the lock that grants exclusive access
// to it. The typed queue is stored as any; the closures give the host
// untyped access to the operations it needs.
type entry struct {
	key     reflect.Type
	name    string
	index   int // registration order; locks are taken in this order
	policy  events.Policy
	compact bool

	mu    sync.Mutex
	queue any // *events.Queue[T]

	clear         func() int
	clearConsumed func() int
	stats         func() events.Stats

	boundaryRuns atomic.Int64
}

// Registry owns exactly one queue per payload type.
//
// Thread-safety: registration and lookup are safe for concurrent use.
// Access to the queues themselves goes through each entry's lock, which the
// App holds for the duration of a system's execution.
type Registry struct {
	mu      sync.RWMutex
	entries map[reflect.Type]*entry
	names   map[string]*entry
	order   []*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[reflect.Type]*entry),
		names:   make(map[string]*entry),
	}
}

// Register allocates the queue for payload type T with the given policy.
// Registering the same type (or the same display name) twice fails with
// ErrCodeQueueAlreadyRegistered.
func Register[T any](r *Registry, policy events.Policy, opts ...RegisterOption) (*events.Queue[T], error) {
	key := KeyOf[T]()

	o := registerOptions{name: key.String()}
	for _, opt := range opts {
		opt(&o)
	}

	if !policy.Valid() {
		return nil, &RuntimeError{
			Code:    ErrCodeInvalidPolicy,
			Message: "unknown clearing policy " + policy.String(),
			Queue:   o.name,
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; exists {
		return nil, newAlreadyRegisteredError(o.name)
	}
	if _, exists := r.names[o.name]; exists {
		return nil, newAlreadyRegisteredError(o.name)
	}

	q := events.NewQueue[T](policy)
	e := &entry{
		key:           key,
		name:          o.name,
		index:         len(r.order),
		policy:        policy,
		compact:       o.compact && policy == events.Persistent,
		queue:         q,
		clear:         q.Clear,
		clearConsumed: q.ClearConsumed,
		stats:         q.Stats,
	}
	r.entries[key] = e
	r.names[o.name] = e
	r.order = append(r.order, e)

	return q, nil
}

// Lookup returns the queue registered for T.
//
// The returned queue is not synchronized. Outside of a system, callers must
// make sure no round is running concurrently (or use the App helpers).
func Lookup[T any](r *Registry) (*events.Queue[T], error) {
	e, err := r.lookup(KeyOf[T]())
	if err != nil {
		return nil, err
	}
	return e.queue.(*events.Queue[T]), nil
}

func (r *Registry) lookup(key reflect.Type) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key]
	if !ok {
		return nil, newNotRegisteredError(key.String())
	}
	return e, nil
}

// snapshot returns the entries in registration order.
func (r *Registry) snapshot() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entry, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered queues.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Names returns queue display names in registration order.
func (r *Registry) Names() []string {
	entries := r.snapshot()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Policy returns the clearing policy of the queue registered under key.
func (r *Registry) Policy(key reflect.Type) (events.Policy, error) {
	e, err := r.lookup(key)
	if err != nil {
		return 0, err
	}
	return e.policy, nil
}

// Stats returns a snapshot of every queue keyed by display name.
//
// Must not be called from inside a system: it takes each queue's lock and
// deadlocks on any queue the system holds. Call it between rounds, and use
// ClearFrom to clear from inside a system.
func (r *Registry) Stats() map[string]events.Stats {
	entries := r.snapshot()
	out := make(map[string]events.Stats, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out[e.name] = e.stats()
		e.mu.Unlock()
	}
	return out
}

// BoundaryRuns returns how many times the round-boundary hook has run for
// the queue registered under key. Persistent queues without compaction have
// no hook and always report 0.
func (r *Registry) BoundaryRuns(key reflect.Type) (int64, error) {
	e, err := r.lookup(key)
	if err != nil {
		return 0, err
	}
	return e.boundaryRuns.Load(), nil
}
