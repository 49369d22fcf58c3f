package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consumable/internal/events"
)

func sampleEvents(runID string) []Event {
	return []Event{
		{RunID: runID, RoundID: runID + "-r1", Round: 1, Seq: 1, Kind: KindRoundStart},
		{RunID: runID, RoundID: runID + "-r1", Round: 1, Seq: 2, Kind: KindBoundaryClear, Queue: "clicks", Removed: 3},
		{RunID: runID, RoundID: runID + "-r1", Round: 1, Seq: 3, Kind: KindSystem, System: "reader"},
		{
			RunID: runID, RoundID: runID + "-r1", Round: 1, Seq: 4, Kind: KindRoundEnd,
			Queues: map[string]events.Stats{"clicks": {Len: 2, Unconsumed: 1, NextSeq: 6, Sent: 5, Consumed: 1, Cleared: 3}},
		},
	}
}

func TestDigest_IgnoresIDs(t *testing.T) {
	a, err := Digest(sampleEvents("run-a"))
	require.NoError(t, err)
	b, err := Digest(sampleEvents("run-b"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64, "hex-encoded SHA-256")
}

func TestDigest_SensitiveToContent(t *testing.T) {
	base := sampleEvents("run")
	changed := sampleEvents("run")
	changed[1].Removed = 4

	a, err := Digest(base)
	require.NoError(t, err)
	b, err := Digest(changed)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDigest_Empty(t *testing.T) {
	d, err := Digest(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, d)
}

func TestCanonicalMap_OmitsEmptyFields(t *testing.T) {
	m := CanonicalMap(Event{Round: 2, Seq: 7, Kind: KindRoundStart})

	data, err := MarshalCanonical(m)
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"round_start","round":2,"seq":7}`, string(data))
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	for _, ev := range sampleEvents("run") {
		require.NoError(t, r.Record(ctx, ev))
	}

	assert.Len(t, r.Events(), 4)
	clears := r.Filter(KindBoundaryClear)
	require.Len(t, clears, 1)
	assert.Equal(t, "clicks", clears[0].Queue)

	r.Reset()
	assert.Empty(t, r.Events())
}
