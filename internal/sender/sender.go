// Package sender implements the tight Drain/Dispatch scheduling loop that
// turns staged mbuf/metadata slots into NIC transmissions at the right
// moment.
//
// Author: momentics <momentics@gmail.com>
//
// Grounded on ktsnd.c's main loop: drain up to 8 indices per iteration
// from the tx ring into the deadline heap, then look at the heap's
// minimum txtime against the clock and either wait (diff > tx_delta),
// drop a missed deadline (diff < 0), or build and submit the frame
// (0 <= diff <= tx_delta). No blocking sleep anywhere in the loop except
// an optional bounded backoff when both the ring and the heap are empty,
// which keeps a otherwise-idle sender from spinning a full core for
// nothing while never adding latency to a packet that's actually ready.
package sender

import (
	"context"
	"log"
	"time"

	"github.com/unibo-tsn/ktsnd/api"
	"github.com/unibo-tsn/ktsnd/control"
	"github.com/unibo-tsn/ktsnd/internal/deadline"
	"github.com/unibo-tsn/ktsnd/internal/frame"
	"github.com/unibo-tsn/ktsnd/internal/framebuf"
	"github.com/unibo-tsn/ktsnd/internal/mbuf"
	"github.com/unibo-tsn/ktsnd/internal/nic"
)

// drainBurst matches ktsnd.c's table[64]/burst-of-8 dequeue.
const drainBurst = 8

// idleBackoff bounds how long the loop parks when it finds nothing to do
// in either the ring or the heap, per the design's "busy continue" note.
const idleBackoff = 20 * time.Microsecond

// Clock returns the current time in nanoseconds; overridable in tests.
type Clock func() int64

func realClock() int64 { return time.Now().UnixNano() }

// Sender owns the hot loop: it consumes the tx ring, orders pending
// frames by deadline, and submits due ones to the NIC driver.
type Sender struct {
	txRing   api.Ring
	freeRing api.Ring
	heap     *deadline.Heap
	pool     *mbuf.Pool
	driver   nic.Driver
	portID   uint16
	queueID  uint16
	cfg      *control.DaemonConfigStore
	metrics  *control.MetricsRegistry
	clock    Clock
	scratch  *framebuf.Pool
}

// New wires a Sender to the fabric's rings, slot pool, NIC driver and
// configuration store.
func New(txRing, freeRing api.Ring, heapCapacity int, pool *mbuf.Pool, driver nic.Driver,
	portID, queueID uint16, cfg *control.DaemonConfigStore, metrics *control.MetricsRegistry) *Sender {
	return &Sender{
		txRing:   txRing,
		freeRing: freeRing,
		heap:     deadline.New(heapCapacity),
		pool:     pool,
		driver:   driver,
		portID:   portID,
		queueID:  queueID,
		cfg:      cfg,
		metrics:  metrics,
		clock:    realClock,
		scratch:  framebuf.New(frame.HeaderLen + mbuf.PayloadSize),
	}
}

// Run executes the Drain/Dispatch loop until ctx is cancelled.
func (s *Sender) Run(ctx context.Context) error {
	var drained [drainBurst]uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n := s.drain(drained[:])
		acted := s.dispatch()

		if n == 0 && !acted && s.heap.IsEmpty() {
			time.Sleep(idleBackoff)
		}
	}
}

// drain moves up to drainBurst indices from the tx ring into the
// deadline heap, keyed by each slot's txtime.
func (s *Sender) drain(buf []uint64) uint32 {
	n := s.txRing.DequeueBurst(buf, api.Variable)
	for i := uint32(0); i < n; i++ {
		idx := uint32(buf[i])
		md := s.pool.Metadata(idx)
		if err := s.heap.Insert(md.TxTime, idx); err != nil {
			// Heap saturated: this index is still owned by the heap's
			// conceptual slot, so return it to the free ring rather than
			// leaking it, matching the ownership invariant.
			s.returnToFreeRing(idx)
			log.Printf("sender: deadline heap full, dropping slot %d", idx)
		}
	}
	if s.metrics != nil {
		s.metrics.Set("heap_depth", s.heap.Len())
		s.metrics.Set("ring_occupancy", s.txRing.Len())
	}
	return n
}

// dispatch looks at the heap's earliest deadline and acts per the
// design's three-way split. Returns true if it did anything (dropped or
// sent a packet).
func (s *Sender) dispatch() bool {
	if s.heap.IsEmpty() {
		return false
	}

	txtime, err := s.heap.PeekMinPrio()
	if err != nil {
		return false
	}

	now := uint64(s.clock())
	txDelta := uint64(s.cfg.TxDeltaNanos())
	diff := int64(txtime) - int64(now)

	if diff > int64(txDelta) {
		// Case A: not due yet, nothing to do this tick.
		return false
	}

	_, idx, err := s.heap.ExtractMin()
	if err != nil {
		return false
	}

	if diff < 0 {
		// Case B: deadline missed, drop and reclaim the slot.
		log.Printf("sender: packet lost, missed deadline by %dns (slot %d)", -diff, idx)
		s.returnToFreeRing(idx)
		if s.metrics != nil {
			s.bumpDropCounter()
		}
		return true
	}

	// Case C: due now, build the frame and submit it.
	s.transmit(idx)
	return true
}

func (s *Sender) transmit(idx uint32) {
	md := s.pool.Metadata(idx)
	payload := s.pool.Payload(idx)[:md.Size]

	buf := s.scratch.Acquire(frame.HeaderLen + len(payload))
	out := frame.Build(buf, frame.Params{
		SrcMAC:  md.EthSrc,
		DstMAC:  md.EthDst,
		SrcIP:   md.IPSrc,
		DstIP:   md.IPDst,
		DstPort: md.UDPDport,
		Payload: payload,
	})

	if err := s.driver.Submit(s.portID, s.queueID, out); err != nil {
		log.Printf("sender: driver submit failed for slot %d: %v", idx, err)
	}
	s.scratch.Release(buf)

	s.returnToFreeRing(idx)
}

func (s *Sender) returnToFreeRing(idx uint32) {
	buf := [1]uint64{uint64(idx)}
	if s.freeRing.EnqueueBurst(buf[:], api.Fixed) == 0 {
		log.Printf("sender: free ring full, slot %d leaked", idx)
	}
}

func (s *Sender) bumpDropCounter() {
	snap := s.metrics.GetSnapshot()
	count, _ := snap["dropped_deadline_miss"].(int)
	s.metrics.Set("dropped_deadline_miss", count+1)
}
