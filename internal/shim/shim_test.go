package shim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unibo-tsn/ktsnd/api"
	"github.com/unibo-tsn/ktsnd/internal/iface"
	"github.com/unibo-tsn/ktsnd/internal/mbuf"
	"github.com/unibo-tsn/ktsnd/internal/ringbuf"
)

func newTestShim(t *testing.T, freeSlots uint32) (*Shim, *mbuf.Pool) {
	t.Helper()
	free, err := ringbuf.New(8)
	require.NoError(t, err)
	tx, err := ringbuf.New(8)
	require.NoError(t, err)

	ids := make([]uint64, freeSlots)
	for i := range ids {
		ids[i] = uint64(i)
	}
	require.Equal(t, freeSlots, free.EnqueueBurst(ids, api.Variable))

	payloads := make([]byte, int(freeSlots)*mbuf.PayloadSize)
	metadata := make([]byte, int(freeSlots)*mbuf.MetadataSize)
	pool := mbuf.NewPool(freeSlots, payloads, metadata)

	ifaces := iface.NewTable()
	return New(free, tx, pool, ifaces), pool
}

func TestSendMsgRejectsUntrackedSocket(t *testing.T) {
	s, _ := newTestShim(t, 4)
	_, ok, err := s.SendMsg(7, [4]byte{10, 0, 0, 1}, 5000, 123, []byte("hi"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSendMsgRejectsUnknownInterface(t *testing.T) {
	s, _ := newTestShim(t, 4)
	require.NoError(t, s.SetTxTime(7, true))

	_, ok, err := s.SendMsg(7, [4]byte{10, 0, 0, 1}, 5000, 123, []byte("hi"))
	require.NoError(t, err)
	require.False(t, ok, "no interface table entry should fall through like the original")
}

func TestSendMsgStagesPayloadAndMetadata(t *testing.T) {
	s, pool := newTestShim(t, 4)
	require.NoError(t, s.SetTxTime(7, true))

	s.ifaces.Put(&iface.Interface{
		Index:   1,
		Addr:    [4]byte{10, 0, 0, 1},
		Netmask: [4]byte{255, 255, 255, 0},
		MAC:     [6]byte{2, 0, 0, 0, 0, 9},
	})

	n, ok, err := s.SendMsg(7, [4]byte{10, 0, 0, 200}, 6000, 999, []byte("payload"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 7, n)

	var out [1]uint64
	got := s.txRing.DequeueBurst(out[:], api.Fixed)
	require.Equal(t, uint32(1), got)

	idx := uint32(out[0])
	md := pool.Metadata(idx)
	require.Equal(t, uint64(999), md.TxTime)
	require.Equal(t, uint32(7), md.Size)
	require.Equal(t, [6]byte{2, 0, 0, 0, 0, 9}, md.EthSrc)
	require.Equal(t, defaultDstMAC, md.EthDst)
	require.Equal(t, []byte("payload"), pool.Payload(idx)[:7])
}

func TestSendMsgReturnsENOBUFSWhenFreeRingEmpty(t *testing.T) {
	s, _ := newTestShim(t, 0)
	require.NoError(t, s.SetTxTime(7, true))
	s.ifaces.Put(&iface.Interface{
		Index: 1, Addr: [4]byte{10, 0, 0, 1}, Netmask: [4]byte{255, 255, 255, 0},
	})

	_, ok, err := s.SendMsg(7, [4]byte{10, 0, 0, 5}, 1, 1, []byte("x"))
	require.True(t, ok)
	require.ErrorIs(t, err, api.ErrResourceExhausted)
}
