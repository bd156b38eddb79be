// File: internal/nic/memdriver.go
// Author: momentics <momentics@gmail.com>
//
// MemDriver is a software NIC standing in for a DPDK-capable card: it
// records submitted frames per queue behind a single read/write mutex
// shared by all queues.

package nic

import (
	"fmt"
	"sync"
)

// MemDriver collects submitted frames in RAM, one frame log per queue;
// all queues share one lock, so concurrent submits serialize.
type MemDriver struct {
	mu     sync.RWMutex
	queues map[uint16][][]byte
	closed bool
}

// NewMemDriver constructs an empty loopback driver.
func NewMemDriver() *MemDriver {
	return &MemDriver{queues: make(map[uint16][][]byte)}
}

// Submit copies frame (the caller's buffer may be reused right after the
// call returns) and appends it to the named queue's log.
func (m *MemDriver) Submit(portID, queueID uint16, frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("nic: memdriver closed")
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	m.queues[queueID] = append(m.queues[queueID], cp)
	return nil
}

// Frames returns a copy of every frame submitted to queueID, in order.
func (m *MemDriver) Frames(queueID uint16) [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, len(m.queues[queueID]))
	copy(out, m.queues[queueID])
	return out
}

// Features reports a software loopback's (honest) capabilities.
func (m *MemDriver) Features() Features {
	return Features{ZeroCopy: false, Batch: false, NUMAAware: false, OS: []string{"any"}}
}

// Close marks the driver closed; further Submit calls fail.
func (m *MemDriver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Driver = (*MemDriver)(nil)
