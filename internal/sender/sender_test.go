package sender

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unibo-tsn/ktsnd/api"
	"github.com/unibo-tsn/ktsnd/control"
	"github.com/unibo-tsn/ktsnd/internal/mbuf"
	"github.com/unibo-tsn/ktsnd/internal/nic"
	"github.com/unibo-tsn/ktsnd/internal/ringbuf"
)

func newHarness(t *testing.T, slots uint32) (*Sender, api.Ring, api.Ring, *mbuf.Pool, *nic.MemDriver) {
	t.Helper()
	tx, err := ringbuf.New(16)
	require.NoError(t, err)
	free, err := ringbuf.New(16)
	require.NoError(t, err)

	payloads := make([]byte, int(slots)*mbuf.PayloadSize)
	metadata := make([]byte, int(slots)*mbuf.MetadataSize)
	pool := mbuf.NewPool(slots, payloads, metadata)

	driver := nic.NewMemDriver()
	cfgCfg := control.DefaultDaemonConfig()
	cfgCfg.TxDeltaNanos = 50_000
	cfg := control.NewDaemonConfigStore(cfgCfg)
	metrics := control.NewMetricsRegistry()

	s := New(tx, free, 64, pool, driver, 0, 0, cfg, metrics)
	return s, tx, free, pool, driver
}

func stageSlot(t *testing.T, pool *mbuf.Pool, tx api.Ring, idx uint32, txtime uint64, payload []byte) {
	t.Helper()
	copy(pool.Payload(idx), payload)
	pool.SetMetadata(idx, mbuf.Metadata{
		Transport: mbuf.TransportUDP,
		TxTime:    txtime,
		EthSrc:    [6]byte{1, 2, 3, 4, 5, 6},
		EthDst:    [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		IPSrc:     0x0a000001,
		IPDst:     0x0a0000fe,
		UDPDport:  5000,
		Size:      uint32(len(payload)),
	})
	buf := [1]uint64{uint64(idx)}
	require.Equal(t, uint32(1), tx.EnqueueBurst(buf[:], api.Fixed))
}

func TestDispatchSendsDuePacket(t *testing.T) {
	s, tx, _, pool, driver := newHarness(t, 4)
	s.clock = func() int64 { return 1_000_000 }

	stageSlot(t, pool, tx, 0, 1_000_000, []byte("hello"))
	s.drain(make([]uint64, drainBurst))
	acted := s.dispatch()

	require.True(t, acted)
	frames := driver.Frames(0)
	require.Len(t, frames, 1)
}

func TestDispatchDefersFuturePacket(t *testing.T) {
	s, tx, _, pool, _ := newHarness(t, 4)
	s.clock = func() int64 { return 0 }

	stageSlot(t, pool, tx, 0, 1_000_000_000, []byte("later"))
	s.drain(make([]uint64, drainBurst))
	acted := s.dispatch()

	require.False(t, acted)
	require.Equal(t, 1, s.heap.Len())
}

func TestDispatchDropsMissedDeadline(t *testing.T) {
	s, tx, free, pool, driver := newHarness(t, 4)
	s.clock = func() int64 { return 1_000_000_000 }

	stageSlot(t, pool, tx, 0, 1_000, []byte("stale"))
	s.drain(make([]uint64, drainBurst))
	acted := s.dispatch()

	require.True(t, acted)
	require.Empty(t, driver.Frames(0))

	var out [1]uint64
	require.Equal(t, uint32(1), free.DequeueBurst(out[:], api.Fixed))
	require.Equal(t, uint64(0), out[0])
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s, _, _, _, _ := newHarness(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sender did not stop after context cancellation")
	}
}
