// Package deadline implements the array-backed binary min-heap the sender
// orders pending transmissions by. It is keyed on txtime (nanoseconds,
// TAI), not on insertion order: the sender always wants the next frame
// whose deadline is soonest.
//
// Author: momentics <momentics@gmail.com>
//
// This is not container/heap: the original keeps a flat node array with
// insert/decrease_key/extract_min/delete, addressed by slot index rather
// than through an interface satisfying heap.Interface, and this port keeps
// that same shape so the sender's Drain/Dispatch loop reads the same way
// the C original does.
package deadline

import "github.com/unibo-tsn/ktsnd/api"

// node pairs a priority (txtime) with an opaque payload (a mbuf/metadata
// slot index in this fabric, but the heap itself doesn't need to know
// that).
type node struct {
	prio uint64
	data uint32
}

// Heap is a fixed-capacity binary min-heap over (prio, data) pairs.
type Heap struct {
	elems []node
	size  int
}

// New allocates a heap with room for cap elements.
func New(capacity int) *Heap {
	return &Heap{elems: make([]node, capacity)}
}

// Len reports the current occupancy.
func (h *Heap) Len() int { return h.size }

// Cap reports the fixed capacity.
func (h *Heap) Cap() int { return len(h.elems) }

// IsEmpty reports whether the heap holds no elements.
func (h *Heap) IsEmpty() bool { return h.size == 0 }

func parent(i int) int { return (i - 1) / 2 }
func left(i int) int   { return 2*i + 1 }
func right(i int) int  { return 2*i + 2 }

func (h *Heap) swap(i, j int) { h.elems[i], h.elems[j] = h.elems[j], h.elems[i] }

// siftUp is the original's _kt_prio_queue_reorder.
func (h *Heap) siftUp(i int) {
	for i > 0 && h.elems[i].prio < h.elems[parent(i)].prio {
		h.swap(i, parent(i))
		i = parent(i)
	}
}

// siftDown is the original's _kt_prio_queue_heapify.
func (h *Heap) siftDown(i int) {
	for {
		minIdx := i
		l, r := left(i), right(i)
		if l < h.size && h.elems[l].prio < h.elems[minIdx].prio {
			minIdx = l
		}
		if r < h.size && h.elems[r].prio < h.elems[minIdx].prio {
			minIdx = r
		}
		if minIdx == i {
			return
		}
		h.swap(i, minIdx)
		i = minIdx
	}
}

// Insert appends data at priority prio. Returns api.ErrHeapFull if the
// heap is at capacity, matching the original's cap check.
func (h *Heap) Insert(prio uint64, data uint32) error {
	if h.size == h.Cap() {
		return api.ErrHeapFull
	}
	h.elems[h.size] = node{prio: ^uint64(0), data: data}
	h.size++
	h.DecreaseKey(h.size-1, prio)
	return nil
}

// DecreaseKey lowers the priority at slot i to newVal. A newVal greater
// than the current priority is silently ignored, matching the original's
// decrease_key contract (it never raises a key).
func (h *Heap) DecreaseKey(i int, newVal uint64) {
	if i < 0 || i >= h.size {
		return
	}
	if newVal > h.elems[i].prio {
		return
	}
	h.elems[i].prio = newVal
	h.siftUp(i)
}

// ExtractMin removes and returns the minimum-priority element.
func (h *Heap) ExtractMin() (prio uint64, data uint32, err error) {
	if h.size == 0 {
		return 0, 0, api.ErrHeapEmpty
	}
	min := h.elems[0]
	h.elems[0] = h.elems[h.size-1]
	h.size--
	h.siftDown(0)
	return min.prio, min.data, nil
}

// PeekMinPrio returns the minimum priority without removing it.
func (h *Heap) PeekMinPrio() (uint64, error) {
	if h.size == 0 {
		return 0, api.ErrHeapEmpty
	}
	return h.elems[0].prio, nil
}

// Delete removes the element at slot i entirely, matching the original's
// delete_key = decrease_key(MIN) + extract_min discard.
func (h *Heap) Delete(i int) {
	if i < 0 || i >= h.size {
		return
	}
	h.DecreaseKey(i, 0)
	_, _, _ = h.ExtractMin()
}
