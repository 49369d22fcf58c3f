package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/consumable/internal/trace"
)

const selectEvents = `
	SELECT run_id, round_id, round, sub_round, seq, kind, system, queue, removed, error, queues
	FROM trace_events
`

// ReadRun returns every event of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadRun(ctx context.Context, runID string) ([]trace.Event, error) {
	return s.queryEvents(ctx, selectEvents+`
		WHERE run_id = ?
		ORDER BY seq ASC, id ASC
	`, runID)
}

// ReadRound returns the events of one round of a run ordered by seq.
func (s *Store) ReadRound(ctx context.Context, runID string, round int64) ([]trace.Event, error) {
	return s.queryEvents(ctx, selectEvents+`
		WHERE run_id = ? AND round = ?
		ORDER BY seq ASC, id ASC
	`, runID, round)
}

// ReadKind returns the events of a run with the given kind ordered by seq.
func (s *Store) ReadKind(ctx context.Context, runID string, kind trace.Kind) ([]trace.Event, error) {
	return s.queryEvents(ctx, selectEvents+`
		WHERE run_id = ? AND kind = ?
		ORDER BY seq ASC, id ASC
	`, runID, string(kind))
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trace events: %w", err)
	}
	defer rows.Close()

	evs := []trace.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace events: %w", err)
	}

	return evs, nil
}

func scanEvent(rows *sql.Rows) (trace.Event, error) {
	var (
		ev         trace.Event
		kind       string
		queuesJSON string
	)
	err := rows.Scan(
		&ev.RunID,
		&ev.RoundID,
		&ev.Round,
		&ev.SubRound,
		&ev.Seq,
		&kind,
		&ev.System,
		&ev.Queue,
		&ev.Removed,
		&ev.Error,
		&queuesJSON,
	)
	if err != nil {
		return trace.Event{}, fmt.Errorf("scan trace event: %w", err)
	}

	ev.Kind = trace.Kind(kind)
	ev.Queues, err = unmarshalQueues(queuesJSON)
	if err != nil {
		return trace.Event{}, fmt.Errorf("scan trace event seq=%d: %w", ev.Seq, err)
	}
	return ev, nil
}

// RunSummary describes one journaled run.
type RunSummary struct {
	RunID  string `json:"run_id"`
	Rounds int64  `json:"rounds"`
	Events int    `json:"events"`
	Errors int    `json:"errors"`
}

// ListRuns returns a summary per run, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id,
		       MAX(round),
		       COUNT(*),
		       SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END)
		FROM trace_events
		GROUP BY run_id
		ORDER BY MIN(id) ASC
	`, string(trace.KindSystemError))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Rounds, &r.Events, &r.Errors); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}
