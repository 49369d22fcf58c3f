package store

import (
	"context"
	"fmt"

	"github.com/roach88/consumable/internal/trace"
)

// Record appends a trace event to the journal. It implements trace.Tracer,
// so a Store can be passed straight to app.WithTracer.
//
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency: re-recording the
// same event is silently ignored.
func (s *Store) Record(ctx context.Context, ev trace.Event) error {
	queuesJSON, err := marshalQueues(ev.Queues)
	if err != nil {
		return fmt.Errorf("record trace event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trace_events
		(run_id, round_id, round, sub_round, seq, kind, system, queue, removed, error, queues)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		ev.RunID,
		ev.RoundID,
		ev.Round,
		ev.SubRound,
		ev.Seq,
		string(ev.Kind),
		ev.System,
		ev.Queue,
		ev.Removed,
		ev.Error,
		queuesJSON,
	)
	if err != nil {
		return fmt.Errorf("record trace event: %w", err)
	}

	return nil
}
