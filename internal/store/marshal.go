package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/consumable/internal/events"
	"github.com/roach88/consumable/internal/trace"
)

// marshalQueues converts a queue snapshot to canonical JSON TEXT.
// Canonical form keeps stored rows byte-identical across replays.
func marshalQueues(queues map[string]events.Stats) (string, error) {
	if len(queues) == 0 {
		return "{}", nil
	}
	data, err := trace.MarshalCanonical(trace.QueuesMap(queues))
	if err != nil {
		return "", fmt.Errorf("marshal queues: %w", err)
	}
	return string(data), nil
}

// unmarshalQueues parses a stored snapshot. Returns nil for "{}" so that
// events without a snapshot round-trip unchanged.
func unmarshalQueues(data string) (map[string]events.Stats, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var out map[string]events.Stats
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal queues: %w", err)
	}
	return out, nil
}
