// Package api
// Author: momentics <momentics@gmail.com>
//
// Contract for the burst-oriented SPSC ring buffer that moves mbuf/metadata
// indices between the shim and the sender. Only an 8-byte (uint64) element
// is in scope; the contract reflects that instead of pretending to be
// generic over element size.

package api

// Behavior selects how a burst operation degrades when it can't move the
// full request: FIXED is all-or-nothing, VARIABLE accepts a short burst.
type Behavior int

const (
	// Fixed requires the whole burst to fit, or moves none of it.
	Fixed Behavior = iota
	// Variable moves as many elements as currently fit.
	Variable
)

// Ring is the producer/consumer contract for the 8-byte-element SPSC ring.
type Ring interface {
	// EnqueueBurst attempts to move len(items) elements into the ring.
	// Returns the number actually enqueued.
	EnqueueBurst(items []uint64, behavior Behavior) uint32

	// DequeueBurst attempts to fill out with up to len(out) elements.
	// Returns the number actually dequeued.
	DequeueBurst(out []uint64, behavior Behavior) uint32

	// Len returns the current occupancy.
	Len() uint32

	// Cap returns the ring's fixed capacity (size - 1).
	Cap() uint32
}
