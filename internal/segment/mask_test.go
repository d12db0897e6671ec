package segment

import (
	"bytes"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStrokeKeepAndErase(t *testing.T) {
	m := NewMask(64, 64)
	defer m.Close()
	require.True(t, m.Empty())

	m.ApplyStroke([]image.Point{{X: 32, Y: 32}}, 5, Keep)
	assert.False(t, m.Empty())

	m.ApplyStroke([]image.Point{{X: 32, Y: 32}}, 8, Erase)
	assert.True(t, m.Empty(), "an erase brush covering the kept blob must clear it")
}

func TestApplyStrokeIdempotent(t *testing.T) {
	m := NewMask(64, 64)
	defer m.Close()

	path := []image.Point{{X: 10, Y: 10}, {X: 40, Y: 20}, {X: 50, Y: 50}}

	m.ApplyStroke(path, 4, Keep)
	once := m.Mat().ToBytes()

	m.ApplyStroke(path, 4, Keep)
	twice := m.Mat().ToBytes()

	assert.True(t, bytes.Equal(once, twice),
		"repeating an identical stroke must not change the pixels")
}

func TestApplyStrokeBumpsVersion(t *testing.T) {
	m := NewMask(16, 16)
	defer m.Close()

	require.Zero(t, m.Version())

	m.ApplyStroke([]image.Point{{X: 4, Y: 4}}, 2, Keep)
	assert.Equal(t, uint64(1), m.Version())

	m.ApplyStroke([]image.Point{{X: 4, Y: 4}}, 2, Erase)
	assert.Equal(t, uint64(2), m.Version())
}

func TestApplyStrokeNeverResizes(t *testing.T) {
	m := NewMask(32, 24)
	defer m.Close()

	// Stroke reaching far outside the buffer.
	m.ApplyStroke([]image.Point{{X: -100, Y: -100}, {X: 500, Y: 500}}, 20, Keep)

	assert.Equal(t, 32, m.Width())
	assert.Equal(t, 24, m.Height())
}

func TestApplyStrokeEmptyPathIsNoop(t *testing.T) {
	m := NewMask(16, 16)
	defer m.Close()

	m.ApplyStroke(nil, 3, Keep)
	assert.Zero(t, m.Version())
	assert.True(t, m.Empty())
}

func TestCloneIsIndependent(t *testing.T) {
	m := NewMask(32, 32)
	defer m.Close()
	m.ApplyStroke([]image.Point{{X: 16, Y: 16}}, 6, Keep)

	c := m.Clone()
	defer c.Close()
	assert.Equal(t, m.Version(), c.Version())

	c.ApplyStroke([]image.Point{{X: 16, Y: 16}}, 10, Erase)
	assert.True(t, c.Empty())
	assert.False(t, m.Empty(), "editing a clone must not touch the original")
}
