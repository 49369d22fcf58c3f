package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consumable/internal/events"
)

type number struct {
	v int
}

type label struct {
	text string
}

func TestRegister_AllocatesOneQueuePerType(t *testing.T) {
	r := NewRegistry()

	q, err := Register[number](r, events.AutoClear)
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, events.AutoClear, q.Policy())

	got, err := Lookup[number](r)
	require.NoError(t, err)
	assert.Same(t, q, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegister_Duplicate(t *testing.T) {
	r := NewRegistry()
	_, err := Register[number](r, events.AutoClear)
	require.NoError(t, err)

	_, err = Register[number](r, events.Persistent)
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeQueueAlreadyRegistered))

	policy, err := r.Policy(KeyOf[number]())
	require.NoError(t, err)
	assert.Equal(t, events.AutoClear, policy, "first registration wins")
}

func TestRegister_DuplicateName(t *testing.T) {
	r := NewRegistry()
	_, err := Register[number](r, events.AutoClear, WithName("values"))
	require.NoError(t, err)

	_, err = Register[label](r, events.AutoClear, WithName("values"))
	assert.True(t, HasCode(err, ErrCodeQueueAlreadyRegistered))
}

func TestRegister_InvalidPolicy(t *testing.T) {
	r := NewRegistry()
	_, err := Register[number](r, events.Policy(99))
	assert.True(t, HasCode(err, ErrCodeInvalidPolicy))
	assert.Equal(t, 0, r.Len())
}

func TestLookup_NotRegistered(t *testing.T) {
	r := NewRegistry()
	_, err := Lookup[number](r)
	require.Error(t, err)
	assert.True(t, IsNotRegistered(err))
	assert.Contains(t, err.Error(), "app.number")
}

func TestRegistry_NamesInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	_, err := Register[label](r, events.Persistent)
	require.NoError(t, err)
	_, err = Register[number](r, events.AutoClear, WithName("numbers"))
	require.NoError(t, err)

	assert.Equal(t, []string{"app.label", "numbers"}, r.Names())
}

func TestRegistry_Stats(t *testing.T) {
	r := NewRegistry()
	q, err := Register[number](r, events.Persistent, WithName("numbers"))
	require.NoError(t, err)

	q.SendBatch(number{1}, number{2})
	q.ConsumeSeq(1)

	stats := r.Stats()
	require.Contains(t, stats, "numbers")
	assert.Equal(t, 2, stats["numbers"].Len)
	assert.Equal(t, 1, stats["numbers"].Unconsumed)
}

func TestWithCompaction_IgnoredForAutoClear(t *testing.T) {
	r := NewRegistry()
	_, err := Register[number](r, events.AutoClear, WithCompaction())
	require.NoError(t, err)

	e, err := r.lookup(KeyOf[number]())
	require.NoError(t, err)
	assert.False(t, e.compact)
}
