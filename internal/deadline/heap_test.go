package deadline

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unibo-tsn/ktsnd/api"
)

func TestHeapExtractsInPriorityOrder(t *testing.T) {
	h := New(8)
	prios := []uint64{50, 10, 40, 20, 30}
	for i, p := range prios {
		require.NoError(t, h.Insert(p, uint32(i)))
	}
	require.Equal(t, 5, h.Len())

	var got []uint64
	for !h.IsEmpty() {
		p, _, err := h.ExtractMin()
		require.NoError(t, err)
		got = append(got, p)
	}
	require.Equal(t, []uint64{10, 20, 30, 40, 50}, got)
}

func TestHeapInsertFailsAtCapacity(t *testing.T) {
	h := New(2)
	require.NoError(t, h.Insert(1, 0))
	require.NoError(t, h.Insert(2, 1))
	require.ErrorIs(t, h.Insert(3, 2), api.ErrHeapFull)
}

func TestHeapExtractMinOnEmptyReturnsError(t *testing.T) {
	h := New(4)
	_, _, err := h.ExtractMin()
	require.Error(t, err)
}

func TestHeapPeekMinPrio(t *testing.T) {
	h := New(4)
	require.NoError(t, h.Insert(100, 7))
	require.NoError(t, h.Insert(5, 9))
	p, err := h.PeekMinPrio()
	require.NoError(t, err)
	require.Equal(t, uint64(5), p)
}

func TestHeapDeleteRemovesArbitrarySlot(t *testing.T) {
	h := New(8)
	for i := 0; i < 6; i++ {
		require.NoError(t, h.Insert(uint64(100-i), uint32(i)))
	}
	h.Delete(3)
	require.Equal(t, 5, h.Len())
}

func TestHeapRandomizedOrdering(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	h := New(256)
	var prios []uint64
	for i := 0; i < 200; i++ {
		p := uint64(r.Intn(1_000_000))
		prios = append(prios, p)
		require.NoError(t, h.Insert(p, uint32(i)))
	}

	last := uint64(0)
	for !h.IsEmpty() {
		p, _, err := h.ExtractMin()
		require.NoError(t, err)
		require.GreaterOrEqual(t, p, last)
		last = p
	}
}
