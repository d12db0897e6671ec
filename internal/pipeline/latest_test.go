package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotEmptyTake(t *testing.T) {
	s := NewSlot[int]()

	_, ok := s.Take()
	assert.False(t, ok)
}

func TestSlotLatestWins(t *testing.T) {
	s := NewSlot[int]()

	_, dropped := s.Put(1)
	assert.False(t, dropped)

	old, dropped := s.Put(2)
	require.True(t, dropped, "untaken value must be handed back to the producer")
	assert.Equal(t, 1, old)

	v, ok := s.Take()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestSlotTakeConsumes(t *testing.T) {
	s := NewSlot[string]()

	s.Put("a")

	v, ok := s.Take()
	require.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = s.Take()
	assert.False(t, ok, "second Take must find the slot empty")

	_, dropped := s.Put("b")
	assert.False(t, dropped, "taken value must not be reported as dropped")
}
