// Package ringbuf implements the lock-free single-producer/single-consumer
// ring buffer of 8-byte elements that moves mbuf/metadata slot indices
// between the shim (producer) and the sender (consumer).
//
// Author: momentics <momentics@gmail.com>
//
// Grounded on kt_ringbuf.c: CAS-protected producer/consumer head/tail pairs
// with acquire/release ordering, a capacity of size-1 (one slot always
// held back to disambiguate full from empty without a separate counter),
// and a tail-publish spin so bursts commit in submission order even though
// the head advance is lock-free. Cache-line padding between the producer
// and consumer head/tail pairs keeps the two sides from false-sharing the
// same line under concurrent access, the same layout comment the teacher's
// own ring carries.
package ringbuf

import (
	"sync/atomic"

	"github.com/unibo-tsn/ktsnd/api"
)

const cacheLineSize = 64

// headTail is the producer or consumer cursor pair, matching kt_headtail.
type headTail struct {
	head atomic.Uint32
	tail atomic.Uint32
	_    [cacheLineSize - 8]byte
}

// Ring is a fixed-capacity SPSC ring of uint64 elements.
type Ring struct {
	data []uint64
	size uint32
	mask uint32
	cap  uint32

	prod headTail
	cons headTail
}

// New allocates a ring holding size elements; size must be a power of two,
// matching kt_ringbuf_create's implicit requirement (mask = size-1 only
// works as a modulus substitute when size is a power of two). Returns an
// *api.Error with code api.ErrCodeInit rather than silently computing a
// wrong mask.
func New(size uint32) (*Ring, error) {
	if size == 0 || size&(size-1) != 0 {
		return nil, api.NewError(api.ErrCodeInit, "ringbuf: size must be a power of two").WithContext("size", size)
	}
	r := &Ring{
		data: make([]uint64, size),
		size: size,
		mask: size - 1,
		cap:  size - 1,
	}
	return r, nil
}

// Cap returns the ring's usable capacity (size-1).
func (r *Ring) Cap() uint32 { return r.cap }

// Len returns the current occupancy, clamped to capacity the way
// kt_ringbuf_count does.
func (r *Ring) Len() uint32 {
	prodTail := r.prod.tail.Load()
	consTail := r.cons.tail.Load()
	count := (prodTail - consTail) & r.mask
	if count > r.cap {
		return r.cap
	}
	return count
}

func (r *Ring) moveProdHead(n uint32, behavior api.Behavior) (oldHead, newHead, freeEntries uint32) {
	max := n
	oldHead = r.prod.head.Load()
	for {
		n = max
		consTail := r.cons.tail.Load()
		freeEntries = r.cap - (oldHead - consTail)
		if n > freeEntries {
			if behavior == api.Fixed {
				n = 0
			} else {
				n = freeEntries
			}
		}
		if n == 0 {
			return oldHead, oldHead, freeEntries
		}
		newHead = oldHead + n
		if r.prod.head.CompareAndSwap(oldHead, newHead) {
			return oldHead, newHead, freeEntries
		}
		oldHead = r.prod.head.Load()
	}
}

func (r *Ring) moveConsHead(n uint32, behavior api.Behavior) (oldHead, newHead, entries uint32) {
	max := n
	oldHead = r.cons.head.Load()
	for {
		n = max
		prodTail := r.prod.tail.Load()
		entries = prodTail - oldHead
		if n > entries {
			if behavior == api.Fixed {
				n = 0
			} else {
				n = entries
			}
		}
		if n == 0 {
			return oldHead, oldHead, entries
		}
		newHead = oldHead + n
		if r.cons.head.CompareAndSwap(oldHead, newHead) {
			return oldHead, newHead, entries
		}
		oldHead = r.cons.head.Load()
	}
}

func (r *Ring) writeElems(head uint32, src []uint64) {
	n := uint32(len(src))
	idx := head & r.mask
	if idx+n <= r.size {
		for i := uint32(0); i < n; i++ {
			r.data[idx+i] = src[i]
		}
		return
	}
	i := uint32(0)
	for ; idx < r.size; idx++ {
		r.data[idx] = src[i]
		i++
	}
	for idx = 0; i < n; idx++ {
		r.data[idx] = src[i]
		i++
	}
}

func (r *Ring) readElems(head uint32, dst []uint64) {
	n := uint32(len(dst))
	idx := head & r.mask
	if idx+n <= r.size {
		for i := uint32(0); i < n; i++ {
			dst[i] = r.data[idx+i]
		}
		return
	}
	i := uint32(0)
	for ; idx < r.size; idx++ {
		dst[i] = r.data[idx]
		i++
	}
	for idx = 0; i < n; idx++ {
		dst[i] = r.data[idx]
		i++
	}
}

// EnqueueBurst attempts to enqueue all of items (FIXED) or as many as fit
// (VARIABLE). Returns the number actually enqueued.
func (r *Ring) EnqueueBurst(items []uint64, behavior api.Behavior) uint32 {
	n := uint32(len(items))
	prodHead, prodNext, _ := r.moveProdHead(n, behavior)
	if prodNext == prodHead {
		return 0
	}
	moved := prodNext - prodHead
	r.writeElems(prodHead, items[:moved])

	for r.prod.tail.Load() != prodHead {
		// another producer's burst committed first; busy-wait for our turn.
	}
	r.prod.tail.Store(prodNext)
	return moved
}

// DequeueBurst attempts to fill all of out (FIXED) or as many as are
// available (VARIABLE). Returns the number actually dequeued.
func (r *Ring) DequeueBurst(out []uint64, behavior api.Behavior) uint32 {
	n := uint32(len(out))
	consHead, consNext, _ := r.moveConsHead(n, behavior)
	if consNext == consHead {
		return 0
	}
	moved := consNext - consHead
	r.readElems(consHead, out[:moved])

	for r.cons.tail.Load() != consHead {
	}
	r.cons.tail.Store(consNext)
	return moved
}

var _ api.Ring = (*Ring)(nil)
