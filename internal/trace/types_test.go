package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingTracer struct{ err error }

func (f failingTracer) Record(context.Context, Event) error { return f.err }

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, Event{Seq: 1, Kind: KindRoundStart}))
	require.NoError(t, r.Record(ctx, Event{Seq: 2, Kind: KindSystem, System: "a"}))
	require.NoError(t, r.Record(ctx, Event{Seq: 3, Kind: KindSystem, System: "b"}))

	assert.Len(t, r.Events(), 3)
	systems := r.Filter(KindSystem)
	require.Len(t, systems, 2)
	assert.Equal(t, "a", systems[0].System)
	assert.Empty(t, r.Filter(KindSystemError))

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestRecorder_EventsIsACopy(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Record(context.Background(), Event{Seq: 1}))

	evs := r.Events()
	evs[0].Seq = 99
	assert.Equal(t, int64(1), r.Events()[0].Seq)
}

func TestMulti(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	boom := errors.New("boom")
	m := Multi{a, nil, failingTracer{boom}, b}

	err := m.Record(context.Background(), Event{Seq: 1})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)

	assert.NoError(t, Multi{a}.Record(context.Background(), Event{Seq: 2}))
}
