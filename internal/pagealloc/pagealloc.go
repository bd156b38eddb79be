// Package pagealloc implements the page-granular bump allocator that carves
// the arena's data region into mbuf and metadata pools at startup.
//
// Author: momentics <momentics@gmail.com>
//
// Grounded on kt_alloc.c: a byte-per-page free mask plus a circular
// singly-linked page-descriptor list, contiguous-run search on alloc, no
// coalescing on free (whichever run was reserved is freed whole). The one
// deliberate divergence: the original carves its own metadata (page list,
// free mask) out of the same shared buffer it allocates from, because C
// has no other place to put it; this port keeps that bookkeeping in normal
// process memory and only ever hands back byte offsets into the data
// region, since those offsets are what the arena's control-region layout
// header and the shim actually need to cross a process boundary.
package pagealloc

import "github.com/unibo-tsn/ktsnd/api"

// page mirrors kt_page: a node in the circular free/used page list.
type page struct {
	next     uint32
	free     bool
	offset   uint32
	reserved uint32
}

// Allocator carves size into page-sized chunks and hands out contiguous
// runs of them.
type Allocator struct {
	pageSize  uint32
	pageCount uint32
	pageFree  uint32
	pages     []page
	freeMask  []byte
}

// Stats is an occupancy snapshot (cmd/ktsnd exposes it as a debug probe),
// replacing the original's page_alloc_print_stats with a value instead of
// a printf.
type Stats struct {
	PageSize  uint32
	PageCount uint32
	PageFree  uint32
}

// New builds an allocator over a size-byte region split into page-sized
// pages. Both size and pageSize must be powers of two, matching the
// original's check.
func New(size, pageSize uint32) (*Allocator, error) {
	if size == 0 || pageSize == 0 || size&(size-1) != 0 || pageSize&(pageSize-1) != 0 {
		return nil, api.NewError(api.ErrCodeInit, "pagealloc: size and pageSize must be powers of two")
	}
	pageCount := size / pageSize
	if pageCount == 0 {
		return nil, api.NewError(api.ErrCodeInit, "pagealloc: region too small for one page")
	}

	a := &Allocator{
		pageSize:  pageSize,
		pageCount: pageCount,
		pageFree:  pageCount,
		pages:     make([]page, pageCount),
		freeMask:  make([]byte, pageCount),
	}
	for i := uint32(0); i < pageCount; i++ {
		a.pages[i] = page{next: (i + 1) % pageCount, free: true, offset: i * pageSize, reserved: 0}
		a.freeMask[i] = 1
	}
	return a, nil
}

// PageSize returns the fixed page size this allocator was built with.
func (a *Allocator) PageSize() uint32 { return a.pageSize }

func (a *Allocator) searchFirstFreeFrom(start uint32) (uint32, bool) {
	for i := start; i < a.pageCount; i++ {
		if a.freeMask[i] != 0 {
			return i, true
		}
	}
	return 0, false
}

func (a *Allocator) findAlignedRun(pagesNeeded uint32) (uint32, bool) {
	idx := uint32(0)
	for {
		start, ok := a.searchFirstFreeFrom(idx)
		if !ok {
			return 0, false
		}
		idx = start
		if pagesNeeded == 1 {
			return idx, true
		}
		contiguous := true
		for k := idx + 1; k < idx+pagesNeeded; k++ {
			if k >= a.pageCount || a.freeMask[k] == 0 {
				idx = k
				contiguous = false
				break
			}
		}
		if contiguous {
			return idx, true
		}
	}
}

// Alloc reserves ceil(size/pageSize) contiguous pages and returns the byte
// offset of the first page into the data region. Returns api.ErrNoCapacity
// if no aligned run of that many free pages exists.
func (a *Allocator) Alloc(size uint32) (uint32, error) {
	pagesNeeded := size / a.pageSize
	if size%a.pageSize != 0 {
		pagesNeeded++
	}
	if pagesNeeded == 0 {
		pagesNeeded = 1
	}
	if a.pageFree < pagesNeeded {
		return 0, api.ErrNoCapacity
	}

	idx, ok := a.findAlignedRun(pagesNeeded)
	if !ok {
		return 0, api.ErrNoCapacity
	}

	a.pages[idx].reserved = pagesNeeded
	cur := idx
	for i := uint32(0); i < pagesNeeded; i++ {
		a.pages[cur].free = false
		cur = a.pages[cur].next
	}
	for i := idx; i < idx+pagesNeeded; i++ {
		a.freeMask[i] = 0
	}
	a.pageFree -= pagesNeeded

	return a.pages[idx].offset, nil
}

// Free releases the run that begins at the page containing offset.
func (a *Allocator) Free(offset uint32) {
	idx := offset / a.pageSize
	if idx >= a.pageCount {
		return
	}
	p := &a.pages[idx]
	if p.free {
		return
	}
	p.free = true
	cur := idx
	for i := uint32(0); i < p.reserved; i++ {
		a.pages[cur].free = true
		cur = a.pages[cur].next
	}
	a.pageFree += p.reserved
	for i := idx; i < idx+p.reserved; i++ {
		a.freeMask[i] = 1
	}
	p.reserved = 0
}

// Stats returns an occupancy snapshot.
func (a *Allocator) Stats() Stats {
	return Stats{PageSize: a.pageSize, PageCount: a.pageCount, PageFree: a.pageFree}
}
