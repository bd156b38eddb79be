package ringbuf

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unibo-tsn/ktsnd/api"
)

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	_, err := New(3)
	require.Error(t, err)
}

func TestEnqueueDequeueFIFOOrder(t *testing.T) {
	r, err := New(8)
	require.NoError(t, err)

	n := r.EnqueueBurst([]uint64{1, 2, 3}, api.Fixed)
	require.Equal(t, uint32(3), n)
	require.Equal(t, uint32(3), r.Len())

	out := make([]uint64, 3)
	got := r.DequeueBurst(out, api.Fixed)
	require.Equal(t, uint32(3), got)
	require.Equal(t, []uint64{1, 2, 3}, out)
	require.Equal(t, uint32(0), r.Len())
}

func TestFixedBehaviorRejectsPartialBurst(t *testing.T) {
	r, err := New(4) // capacity 3
	require.NoError(t, err)

	n := r.EnqueueBurst([]uint64{1, 2, 3, 4}, api.Fixed)
	require.Equal(t, uint32(0), n, "FIXED must not move anything it can't fully satisfy")
}

func TestVariableBehaviorAcceptsPartialBurst(t *testing.T) {
	r, err := New(4) // capacity 3
	require.NoError(t, err)

	n := r.EnqueueBurst([]uint64{1, 2, 3, 4}, api.Variable)
	require.Equal(t, uint32(3), n)
}

func TestDequeueOnEmptyReturnsZero(t *testing.T) {
	r, err := New(4)
	require.NoError(t, err)
	out := make([]uint64, 2)
	require.Equal(t, uint32(0), r.DequeueBurst(out, api.Fixed))
}

func TestWraparoundPreservesOrder(t *testing.T) {
	r, err := New(4) // capacity 3
	require.NoError(t, err)

	out := make([]uint64, 2)
	for round := 0; round < 5; round++ {
		n := r.EnqueueBurst([]uint64{uint64(round*2 + 1), uint64(round*2 + 2)}, api.Variable)
		require.Equal(t, uint32(2), n)
		got := r.DequeueBurst(out, api.Fixed)
		require.Equal(t, uint32(2), got)
		require.Equal(t, uint64(round*2+1), out[0])
		require.Equal(t, uint64(round*2+2), out[1])
	}
}

// TestConcurrentSPSCStress drives one producer and one consumer goroutine
// at once and checks every enqueued value is dequeued exactly once, in
// order, matching the ring's single-producer/single-consumer contract.
func TestConcurrentSPSCStress(t *testing.T) {
	r, err := New(256)
	require.NoError(t, err)

	const total = 100_000
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		buf := make([]uint64, 8)
		for next := uint64(0); next < total; {
			for i := range buf {
				buf[i] = next + uint64(i)
			}
			n := r.EnqueueBurst(buf, api.Variable)
			next += uint64(n)
		}
	}()

	received := make([]uint64, 0, total)
	go func() {
		defer wg.Done()
		buf := make([]uint64, 8)
		for uint64(len(received)) < total {
			n := r.DequeueBurst(buf, api.Variable)
			received = append(received, buf[:n]...)
		}
	}()

	wg.Wait()
	require.Len(t, received, total)
	for i, v := range received {
		require.Equal(t, uint64(i), v)
	}
}
