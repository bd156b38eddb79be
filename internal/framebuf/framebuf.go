// Package framebuf provides a sync.Pool-backed api.BytePool used by the
// sender to reuse frame-construction scratch buffers across dispatch
// iterations instead of allocating one per packet.
//
// Author: momentics <momentics@gmail.com>
//
// Grounded on pool/bufferpool_linux.go's getBuffer/putBuffer pair: a
// sync.Pool stores buffers sized to the largest frame (header plus
// mbuf payload) and grows an undersized buffer in place before handing
// it out, same as linuxBufferPool.getBuffer's cap(buf.data) < size check.
package framebuf

import (
	"sync"

	"github.com/unibo-tsn/ktsnd/api"
)

var _ api.BytePool = (*Pool)(nil)

// Pool is a sync.Pool-backed byte-slice pool implementing api.BytePool.
type Pool struct {
	sync.Pool
	minSize int
}

// New creates a Pool whose buffers are grown to at least minSize bytes.
func New(minSize int) *Pool {
	p := &Pool{minSize: minSize}
	p.Pool.New = func() any {
		return make([]byte, minSize)
	}
	return p
}

// Acquire returns a slice of at least n bytes, reusing a pooled buffer
// when one is large enough.
func (p *Pool) Acquire(n int) []byte {
	buf := p.Pool.Get().([]byte)
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	return buf[:n]
}

// Release returns buf to the pool for reuse.
func (p *Pool) Release(buf []byte) {
	p.Pool.Put(buf[:cap(buf)])
}
