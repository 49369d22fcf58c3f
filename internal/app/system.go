package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"

	"github.com/roach88/consumable/internal/events"
)

// Stage groups systems within a round. Stages run in declaration order of
// the constants below; systems within a stage run in the order they were
// added.
type Stage int

const (
	// First runs right after the round-boundary hooks.
	First Stage = iota + 1
	// PreUpdate typically produces input events.
	PreUpdate
	// FixedUpdate runs once per fixed sub-round (see WithFixedSubRounds).
	FixedUpdate
	// Update is the main stage.
	Update
	// PostUpdate typically reacts to what Update left behind.
	PostUpdate
	// Last runs at the end of the round.
	Last
)

// stageOrder is the execution order of stages within a round.
var stageOrder = []Stage{First, PreUpdate, FixedUpdate, Update, PostUpdate, Last}

var stageNames = map[Stage]string{
	First:       "first",
	PreUpdate:   "pre_update",
	FixedUpdate: "fixed_update",
	Update:      "update",
	PostUpdate:  "post_update",
	Last:        "last",
}

// String returns the snake_case stage name.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// ParseStage parses a stage name as produced by String.
func ParseStage(name string) (Stage, error) {
	for s, n := range stageNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// AccessMode says what a system may do with a queue. Every mode is
// exclusive: the host never runs two systems that touch the same queue at
// the same time.
type AccessMode int

const (
	// AccessRead allows ReaderOf (which includes consuming and mutating).
	AccessRead AccessMode = 1 << iota
	// AccessWrite allows WriterOf and ClearFrom.
	AccessWrite
)

// Access declares a system's dependency on one queue.
type Access struct {
	Key  reflect.Type
	Mode AccessMode
}

// Reads declares read (and consume) access to the queue for T.
func Reads[T any]() Access {
	return Access{Key: KeyOf[T](), Mode: AccessRead}
}

// Writes declares write access to the queue for T.
func Writes[T any]() Access {
	return Access{Key: KeyOf[T](), Mode: AccessWrite}
}

// Uses declares both read and write access to the queue for T.
func Uses[T any]() Access {
	return Access{Key: KeyOf[T](), Mode: AccessRead | AccessWrite}
}

// System is a unit of work the host runs once per round (or once per
// fixed sub-round for FixedUpdate).
type System struct {
	// Name must be unique within an App.
	Name string

	// Stage selects when in the round the system runs.
	Stage Stage

	// Access lists every queue the system touches.
	Access []Access

	// Run does the work. A returned error is logged and reported by
	// Update but does not stop the round.
	Run func(*Context) error
}

// grant is a resolved access declaration.
type grant struct {
	entry *entry
	mode  AccessMode
}

// scheduled is a validated system with its access resolved to registry
// entries, sorted in lock order.
type scheduled struct {
	System
	grants []grant
}

func (s *scheduled) lock() {
	for _, g := range s.grants {
		g.entry.mu.Lock()
	}
}

func (s *scheduled) unlock() {
	for i := len(s.grants) - 1; i >= 0; i-- {
		s.grants[i].entry.mu.Unlock()
	}
}

// resolve validates sys against the registry and merges its access list.
func resolve(r *Registry, sys System) (*scheduled, error) {
	if sys.Name == "" {
		return nil, &RuntimeError{Code: ErrCodeInvalidSystem, Message: "system name is required"}
	}
	if sys.Run == nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidSystem, Message: "system has no run function", System: sys.Name}
	}
	if _, ok := stageNames[sys.Stage]; !ok {
		return nil, &RuntimeError{Code: ErrCodeInvalidSystem, Message: "unknown stage " + sys.Stage.String(), System: sys.Name}
	}

	modes := make(map[*entry]AccessMode)
	for _, a := range sys.Access {
		if a.Key == nil || a.Mode == 0 {
			return nil, &RuntimeError{Code: ErrCodeInvalidSystem, Message: "empty access declaration", System: sys.Name}
		}
		e, err := r.lookup(a.Key)
		if err != nil {
			var re *RuntimeError
			if errors.As(err, &re) {
				re.System = sys.Name
			}
			return nil, err
		}
		modes[e] |= a.Mode
	}

	s := &scheduled{System: sys}
	for e, mode := range modes {
		s.grants = append(s.grants, grant{entry: e, mode: mode})
	}
	slices.SortFunc(s.grants, func(a, b grant) int {
		return a.entry.index - b.entry.index
	})
	return s, nil
}

// RoundInfo identifies the round a system is running in.
type RoundInfo struct {
	// Number is the 1-based round counter.
	Number int64
	// ID is the round's unique identifier.
	ID string
	// SubRound is the 1-based fixed sub-round, or 0 outside FixedUpdate.
	SubRound int
}

// Context is handed to a system for one execution. It must not be retained
// after Run returns.
type Context struct {
	ctx    context.Context
	app    *App
	system *scheduled
	round  RoundInfo
	logger *slog.Logger
}

// Context returns the context.Context of the running round.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Round returns the round being executed.
func (c *Context) Round() RoundInfo {
	return c.round
}

// System returns the name of the running system.
func (c *Context) System() string {
	return c.system.Name
}

// Logger returns a logger annotated with the system and round.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// granted returns the entry for T if the running system declared mode.
func (c *Context) granted(key reflect.Type, mode AccessMode) (*entry, error) {
	for _, g := range c.system.grants {
		if g.entry.key == key {
			if g.mode&mode == 0 {
				break
			}
			return g.entry, nil
		}
	}
	return nil, newAccessError(c.system.Name, key.String())
}

// ReaderOf returns a Reader for T. The system must have declared Reads[T]
// or Uses[T].
func ReaderOf[T any](c *Context) (events.Reader[T], error) {
	e, err := c.granted(KeyOf[T](), AccessRead)
	if err != nil {
		return events.Reader[T]{}, err
	}
	return events.NewReader(e.queue.(*events.Queue[T])), nil
}

// WriterOf returns a Writer for T. The system must have declared Writes[T]
// or Uses[T].
func WriterOf[T any](c *Context) (events.Writer[T], error) {
	e, err := c.granted(KeyOf[T](), AccessWrite)
	if err != nil {
		return events.Writer[T]{}, err
	}
	return events.NewWriter(e.queue.(*events.Queue[T])), nil
}
