// Package shim is a Go-native re-expression of libktsn.c's LD_PRELOAD
// interception layer as an explicit client API: Go cannot interpose on
// libc symbol resolution the way LD_PRELOAD does, so a caller that wants
// deadline-scheduled sends calls shim.Socket/SetTxTime/SendMsg/Close
// directly instead of the kernel-visible socket()/setsockopt()/
// sendmsg()/close() quadruple the original overrides.
//
// Author: momentics <momentics@gmail.com>
//
// Grounded on libktsn.c's per-fd kt_socket records and sendmsg() path:
// a socket only participates in the fabric once SO_TXTIME has been set on
// it; every send still needs a txtime (here an explicit parameter, since
// Go has no cmsg-bearing sendmsg() override to scan) and a destination
// address that resolves to a locally-known interface, or it's rejected
// the same way the original falls through to default_sendmsg for
// anything it doesn't recognize. Raw syscalls are golang.org/x/sys/unix,
// the same package the teacher's own Linux-specific files use.
package shim

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/unibo-tsn/ktsnd/api"
	"github.com/unibo-tsn/ktsnd/internal/iface"
	"github.com/unibo-tsn/ktsnd/internal/mbuf"
)

// defaultDstMAC mirrors kt_default_dst_mac: broadcast, since the sender
// prototype never does ARP resolution.
var defaultDstMAC = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// record mirrors struct kt_socket: per-fd priority and txtime flag.
type record struct {
	prio   int
	txtime bool
}

// Ring is the subset of api.Ring the shim needs from both the free ring
// (to obtain a slot) and the tx ring (to hand a slot to the sender).
type Ring = api.Ring

// Shim holds the fabric state a client process attaches to: the free and
// tx rings, the paired mbuf/metadata pool, and the interface table used
// to pick a source MAC/IP for an outgoing send.
type Shim struct {
	mu      sync.Mutex
	sockets map[int]*record

	freeRing Ring
	txRing   Ring
	pool     *mbuf.Pool
	ifaces   *iface.Table
}

// New wires a Shim to the fabric's rings, slot pool and interface table.
func New(freeRing, txRing Ring, pool *mbuf.Pool, ifaces *iface.Table) *Shim {
	return &Shim{
		sockets:  make(map[int]*record),
		freeRing: freeRing,
		txRing:   txRing,
		pool:     pool,
		ifaces:   ifaces,
	}
}

func (s *Shim) getOrCreate(fd int) *record {
	r, ok := s.sockets[fd]
	if !ok {
		r = &record{prio: -1}
		s.sockets[fd] = r
	}
	return r
}

// Socket opens a socket with the given domain, type and protocol and
// begins tracking it, mirroring
// the original's socket() override (every socket gets a record, even
// before SO_TXTIME is set on it).
func (s *Shim) Socket(domain, typ, protocol int) (int, error) {
	fd, err := unix.Socket(domain, typ, protocol)
	if err != nil {
		return -1, fmt.Errorf("shim: socket: %w", err)
	}
	s.mu.Lock()
	s.getOrCreate(fd)
	s.mu.Unlock()
	return fd, nil
}

// SetPriority mirrors the SO_PRIORITY branch of the original setsockopt()
// override.
func (s *Shim) SetPriority(fd, prio int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreate(fd).prio = prio
	return nil
}

// SetTxTime mirrors the SO_TXTIME branch: marks fd as deadline-scheduled
// (or clears the mark when enabled is false). While the mark is set,
// SendMsg on fd stages into the fabric whenever the destination matches a
// known interface; otherwise SendMsg reports ok=false.
func (s *Shim) SetTxTime(fd int, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreate(fd).txtime = enabled
	return nil
}

// Close stops tracking fd and closes the underlying socket, mirroring
// close()'s list removal plus libc close.
func (s *Shim) Close(fd int) error {
	s.mu.Lock()
	delete(s.sockets, fd)
	s.mu.Unlock()
	return unix.Close(fd)
}

// trackedTxTime reports whether fd is both known and SO_TXTIME-enabled.
func (s *Shim) trackedTxTime(fd int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.sockets[fd]
	return ok && r.txtime
}

// SendMsg stages payload for deadline-scheduled transmission to
// dstAddr:dstPort at txtimeNanos (TAI nanoseconds), mirroring the
// original sendmsg() override's fabric path. fd must have had SetTxTime
// enabled, or ok is false and the caller should fall back to a plain
// socket send the way the original falls through to default_sendmsg.
//
// Unlike the original, a failed tx-ring enqueue also returns the slot to
// the free ring rather than leaking it — the design's ownership
// invariant requires every index stay in exactly one of free-ring,
// tx-ring, sender heap, or a transient single-party hold at all times.
func (s *Shim) SendMsg(fd int, dstAddr [4]byte, dstPort uint16, txtimeNanos uint64, payload []byte) (n int, ok bool, err error) {
	if !s.trackedTxTime(fd) {
		return 0, false, nil
	}

	ifc, found := s.ifaces.ByNet(dstAddr)
	if !found {
		return 0, false, nil
	}

	var idxBuf [1]uint64
	if s.freeRing.DequeueBurst(idxBuf[:], api.Fixed) == 0 {
		return 0, true, api.ErrResourceExhausted
	}
	idx := uint32(idxBuf[0])

	dst := s.pool.Payload(idx)
	if len(payload) > len(dst) {
		s.freeRing.EnqueueBurst(idxBuf[:], api.Fixed)
		return 0, true, api.NewError(api.ErrCodeProgrammer, "shim: payload exceeds mbuf slot size")
	}
	copy(dst, payload)

	s.pool.SetMetadata(idx, mbuf.Metadata{
		Transport: mbuf.TransportUDP,
		TxTime:    txtimeNanos,
		EthSrc:    ifc.MAC,
		EthDst:    defaultDstMAC,
		IPSrc:     be32(ifc.Addr),
		IPDst:     be32(dstAddr),
		UDPDport:  dstPort,
		Size:      uint32(len(payload)),
	})

	if s.txRing.EnqueueBurst(idxBuf[:], api.Fixed) == 0 {
		s.freeRing.EnqueueBurst(idxBuf[:], api.Fixed)
		return 0, true, api.ErrResourceExhausted
	}

	return len(payload), true, nil
}

func be32(b [4]byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
