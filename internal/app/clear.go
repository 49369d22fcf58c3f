package app

import (
	"context"
	"fmt"

	"github.com/roach88/consumable/internal/trace"
)

// ClearMode selects what a manual clear removes.
type ClearMode int

const (
	// ClearModeAll drops every record and invalidates outstanding views.
	ClearModeAll ClearMode = iota + 1
	// ClearModeConsumed drops consumed records and keeps the rest in order.
	ClearModeConsumed
)

// String returns the mode name used in traces and metrics.
func (m ClearMode) String() string {
	switch m {
	case ClearModeAll:
		return "all"
	case ClearModeConsumed:
		return "consumed"
	default:
		return fmt.Sprintf("clear_mode(%d)", int(m))
	}
}

// ParseClearMode parses "all" or "consumed".
func ParseClearMode(s string) (ClearMode, error) {
	switch s {
	case "all":
		return ClearModeAll, nil
	case "consumed":
		return ClearModeConsumed, nil
	default:
		return 0, fmt.Errorf("unknown clear mode %q", s)
	}
}

func (e *entry) clearWith(mode ClearMode) (int, error) {
	switch mode {
	case ClearModeAll:
		return e.clear(), nil
	case ClearModeConsumed:
		return e.clearConsumed(), nil
	default:
		return 0, fmt.Errorf("unknown clear mode %d", int(mode))
	}
}

// Clear empties the queue for T from outside a system, waiting for any
// system currently holding it. Returns the number of records removed.
//
// The queue lock is not reentrant: a system that declared T and calls Clear
// deadlocks. Systems use ClearFrom instead.
func Clear[T any](ctx context.Context, a *App, mode ClearMode) (int, error) {
	e, err := a.registry.lookup(KeyOf[T]())
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	removed, err := e.clearWith(mode)
	e.mu.Unlock()
	if err != nil {
		return 0, err
	}

	a.recordManualClear(ctx, RoundInfo{Number: a.rounds.Current()}, e.name, mode, removed)
	return removed, nil
}

// ClearAll drops every event in the queue for T. See Clear; inside a
// system use ClearFrom with ClearModeAll.
func ClearAll[T any](ctx context.Context, a *App) (int, error) {
	return Clear[T](ctx, a, ClearModeAll)
}

// ClearConsumed drops consumed events from the queue for T. See Clear;
// inside a system use ClearFrom with ClearModeConsumed.
func ClearConsumed[T any](ctx context.Context, a *App) (int, error) {
	return Clear[T](ctx, a, ClearModeConsumed)
}

// ClearFrom clears the queue for T from inside a running system. The system
// must have declared Writes[T] or Uses[T]. Any traversal over the queue that
// is still in progress stops after a full clear.
func ClearFrom[T any](c *Context, mode ClearMode) (int, error) {
	e, err := c.granted(KeyOf[T](), AccessWrite)
	if err != nil {
		return 0, err
	}

	removed, err := e.clearWith(mode)
	if err != nil {
		return 0, err
	}

	c.app.recordManualClear(c.ctx, c.round, e.name, mode, removed)
	return removed, nil
}

func (a *App) recordManualClear(ctx context.Context, info RoundInfo, queue string, mode ClearMode, removed int) {
	a.logger.Debug("queue cleared",
		"queue", queue,
		"mode", mode.String(),
		"removed", removed,
		"round", info.Number,
	)
	a.emit(ctx, info, trace.Event{Kind: trace.KindManualClear, Queue: queue, Removed: removed})
	if a.metrics != nil {
		a.metrics.observeClear(queue, mode.String(), removed)
	}
}
