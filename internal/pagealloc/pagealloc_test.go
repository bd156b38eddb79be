package pagealloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	_, err := New(100, 16)
	require.Error(t, err)
}

func TestAllocReturnsPageAlignedOffsets(t *testing.T) {
	a, err := New(4096, 1024)
	require.NoError(t, err)
	require.Equal(t, uint32(1024), a.PageSize())

	off1, err := a.Alloc(512)
	require.NoError(t, err)
	require.Equal(t, uint32(0), off1)

	off2, err := a.Alloc(1024)
	require.NoError(t, err)
	require.Equal(t, uint32(1024), off2)
}

func TestAllocSpansContiguousPages(t *testing.T) {
	a, err := New(4096, 1024)
	require.NoError(t, err)

	off, err := a.Alloc(3000) // needs 3 pages
	require.NoError(t, err)
	require.Equal(t, uint32(0), off)
	require.Equal(t, uint32(1), a.Stats().PageFree)
}

func TestAllocFailsWhenExhausted(t *testing.T) {
	a, err := New(2048, 1024)
	require.NoError(t, err)

	_, err = a.Alloc(2048)
	require.NoError(t, err)

	_, err = a.Alloc(1)
	require.Error(t, err)
}

func TestFreeReturnsRunToPool(t *testing.T) {
	a, err := New(4096, 1024)
	require.NoError(t, err)

	off, err := a.Alloc(2048)
	require.NoError(t, err)
	require.Equal(t, uint32(2), a.Stats().PageFree)

	a.Free(off)
	require.Equal(t, uint32(4), a.Stats().PageFree)

	off2, err := a.Alloc(4096)
	require.NoError(t, err)
	require.Equal(t, uint32(0), off2)
}

func TestFreeOfAlreadyFreeIsNoop(t *testing.T) {
	a, err := New(2048, 1024)
	require.NoError(t, err)
	a.Free(0)
	require.Equal(t, uint32(2), a.Stats().PageFree)
}
