package fs

import (
	"testing"

	"github.com/inodefs/simplefs/fserrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockAllocatorFirstFit(t *testing.T) {
	alloc := newBlockAllocator(4)

	a, err := alloc.allocate()
	require.NoError(t, err)
	assert.EqualValues(t, 0, a)

	b, err := alloc.allocate()
	require.NoError(t, err)
	assert.EqualValues(t, 1, b)

	alloc.release(a)

	c, err := alloc.allocate()
	require.NoError(t, err)
	assert.EqualValues(t, 0, c, "release should make the lowest index available again")
}

func TestBlockAllocatorExhaustion(t *testing.T) {
	alloc := newBlockAllocator(2)

	_, err := alloc.allocate()
	require.NoError(t, err)
	_, err = alloc.allocate()
	require.NoError(t, err)

	_, err = alloc.allocate()
	require.Error(t, err)
	var fsErr *fserrors.Error
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, fserrors.NoSpace, fsErr.Kind())
}

func TestBlockAllocatorReleaseOutOfRangeIsNoop(t *testing.T) {
	alloc := newBlockAllocator(2)
	assert.NotPanics(t, func() { alloc.release(100) })
}

func TestBlockAllocatorReleaseIsIdempotent(t *testing.T) {
	alloc := newBlockAllocator(2)
	a, err := alloc.allocate()
	require.NoError(t, err)

	alloc.release(a)
	alloc.release(a)

	got, err := alloc.allocate()
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestBlockAllocatorSnapshot(t *testing.T) {
	alloc := newBlockAllocator(3)
	_, err := alloc.allocate()
	require.NoError(t, err)

	snap := alloc.snapshot()
	require.Len(t, snap, 3)
	assert.True(t, snap[0])
	assert.False(t, snap[1])
	assert.False(t, snap[2])
}
