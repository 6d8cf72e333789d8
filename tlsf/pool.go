// Package tlsf implements the two-level segregated-fit allocator over a
// caller-supplied, fixed-size byte region. It follows the
// free-list-in-buffer idiom of
// nmxmxh-inos_v1/kernel/threads/arena/buddy.go (readU32/writeU32 of
// intrusive pointers directly into the backing slice) generalized from a
// power-of-two buddy scheme to TLSF's bitmap-indexed size-class table.
package tlsf

import (
	"sync"

	"github.com/nmxmxh/guerrero/internal/bitutil"
	"github.com/nmxmxh/guerrero/internal/blockhdr"
	"github.com/nmxmxh/guerrero/internal/fault"
	"github.com/nmxmxh/guerrero/internal/sizeclass"
	"github.com/nmxmxh/guerrero/registry"
)

const (
	// AlignSize is the allocator's alignment quantum.
	AlignSize = sizeclass.AlignSize
	// HeaderSize is the on-disk size of a block header.
	HeaderSize = blockhdr.HeaderSize
	// MinPayloadSize is the smallest payload a block can hold — large
	// enough to host the free-list's next/prev links.
	MinPayloadSize = 8
	// MaxPayloadSize is the largest payload size the size-class table
	// can represent.
	MaxPayloadSize = sizeclass.MaxPayloadSize
)

// Allocator manages allocate/free/reallocate over a region
// [regionStart, regionStart+regionSize) inside buf. Multiple allocators
// may coexist in the same buffer by using disjoint regions.
//
// mu guards the allocator's own bookkeeping (bitmaps, free-list heads).
// The core is single-threaded per instance; the mutex here exists for
// stylistic parity with nmxmxh-inos_v1/kernel/threads/arena's
// allocators, which all embed a sync.RWMutex even though INOS itself
// pins one goroutine per module — not as a concurrency guarantee this
// package advertises.
type Allocator struct {
	mu sync.RWMutex

	buf         []byte
	regionStart uint32
	regionEnd   uint32

	flBitmap uint32
	slBitmap [sizeclass.FLIndexCount]uint32
	blocks   [sizeclass.FLIndexCount][sizeclass.SLIndexCount]uint32

	registry *registry.Registry

	stats  statsState
	safety safetyState
}

// Registry returns the debug allocation registry this allocator reports
// to, or nil if none was supplied to New.
func (a *Allocator) Registry() *registry.Registry {
	return a.registry
}

// New creates an Allocator over buf[regionStart : regionStart+regionSize].
// If regionSize is 0, the region extends to the end of buf. reg may be
// nil to disable the debug allocation registry.
func New(buf []byte, regionStart, regionSize uint32, reg *registry.Registry) (*Allocator, error) {
	if regionSize == 0 {
		if regionStart > uint32(len(buf)) {
			return nil, fault.ErrRegionOutOfBounds
		}
		regionSize = uint32(len(buf)) - regionStart
	}
	regionEnd := regionStart + regionSize
	if regionEnd < regionStart || regionStart > uint32(len(buf)) || regionEnd > uint32(len(buf)) {
		return nil, fault.ErrRegionOutOfBounds
	}
	// Room for one minimum free block plus the zero-size sentinel.
	if regionSize < HeaderSize+MinPayloadSize+HeaderSize {
		return nil, fault.ErrRegionTooSmall
	}

	a := &Allocator{
		buf:         buf,
		regionStart: regionStart,
		regionEnd:   regionEnd,
		registry:    reg,
	}
	for fl := range a.blocks {
		for sl := range a.blocks[fl] {
			a.blocks[fl][sl] = blockhdr.NullFreeLink
		}
	}
	a.initPool()
	return a, nil
}

func (a *Allocator) initPool() {
	payload := a.regionEnd - a.regionStart - 2*HeaderSize

	h := blockhdr.At(a.buf, a.regionStart)
	h.SetPrevPhysBlock(0)
	h.SetPayloadSize(payload)
	h.SetFree(true)
	h.SetPrevFreeFlag(false)

	sentinelOff := h.LinkNext()
	s := blockhdr.At(a.buf, sentinelOff)
	s.SetPayloadSize(0)
	s.SetFree(false)
	s.SetPrevFreeFlag(true)

	a.insertFreeBlock(h)
	a.statsInit(payload)
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

// resizeBlock rewrites h's payload size and relinks the physically
// following block's prev_phys_block, without touching either block's
// free/used flags — callers set those separately.
func (a *Allocator) resizeBlock(h blockhdr.Header, newPayload uint32) {
	h.SetPayloadSize(newPayload)
	h.LinkNext()
}

func (a *Allocator) insertFreeBlock(h blockhdr.Header) {
	fl, sl := sizeclass.Insert(h.PayloadSize())
	head := a.blocks[fl][sl]
	h.SetNextFreeLink(head)
	h.SetPrevFreeLink(blockhdr.NullFreeLink)
	if head != blockhdr.NullFreeLink {
		blockhdr.At(a.buf, head).SetPrevFreeLink(h.Offset())
	}
	a.blocks[fl][sl] = h.Offset()
	a.flBitmap |= 1 << uint(fl)
	a.slBitmap[fl] |= 1 << uint(sl)
}

func (a *Allocator) removeFreeBlock(h blockhdr.Header) {
	fl, sl := sizeclass.Insert(h.PayloadSize())
	prev := h.PrevFreeLink()
	next := h.NextFreeLink()
	if prev != blockhdr.NullFreeLink {
		blockhdr.At(a.buf, prev).SetNextFreeLink(next)
	} else {
		a.blocks[fl][sl] = next
	}
	if next != blockhdr.NullFreeLink {
		blockhdr.At(a.buf, next).SetPrevFreeLink(prev)
	}
	if a.blocks[fl][sl] == blockhdr.NullFreeLink {
		a.slBitmap[fl] &^= 1 << uint(sl)
		if a.slBitmap[fl] == 0 {
			a.flBitmap &^= 1 << uint(fl)
		}
	}
}

// searchSuitable finds the first non-empty cell at or after (fl, sl),
// returning the header offset at the head of that cell's free list.
func (a *Allocator) searchSuitable(fl, sl int) (uint32, bool) {
	slMap := a.slBitmap[fl] & (^uint32(0) << uint(sl))
	if slMap == 0 {
		flMap := a.flBitmap & (^uint32(0) << uint(fl+1))
		if flMap == 0 {
			return 0, false
		}
		fl = bitutil.FFS32(flMap)
		slMap = a.slBitmap[fl]
	}
	sl = bitutil.FFS32(slMap)
	return a.blocks[fl][sl], true
}

// mergeRight absorbs h's physically-next block into h if that block is
// free. h must not be a member of any free list when called.
func (a *Allocator) mergeRight(h blockhdr.Header) blockhdr.Header {
	next := h.Next()
	if !next.IsFree() {
		return h
	}
	a.removeFreeBlock(next)
	a.resizeBlock(h, h.PayloadSize()+HeaderSize+next.PayloadSize())
	return h
}

// mergeLeft absorbs h into its physically-previous block if that block is
// free, returning whichever header now represents the combined block.
func (a *Allocator) mergeLeft(h blockhdr.Header) blockhdr.Header {
	if !h.IsPrevFree() {
		return h
	}
	prev := h.Prev()
	a.removeFreeBlock(prev)
	a.resizeBlock(prev, prev.PayloadSize()+HeaderSize+h.PayloadSize())
	return prev
}

// splitAndTrim shrinks h to requestSize if the leftover is large enough
// to host its own header and minimum payload, freeing and merging the
// remainder block to the right before reinserting it.
func (a *Allocator) splitAndTrim(h blockhdr.Header, requestSize uint32) {
	leftover := h.PayloadSize() - requestSize
	if leftover < HeaderSize+MinPayloadSize {
		return
	}
	a.resizeBlock(h, requestSize)
	rem := h.Next()
	a.resizeBlock(rem, leftover-HeaderSize)
	rem.MarkAsFree()
	rem.SetPrevFreeFlag(h.IsFree())
	rem = a.mergeRight(rem)
	a.insertFreeBlock(rem)
}

func (a *Allocator) validateUserPointer(userPtr uint32) error {
	if userPtr < a.regionStart+HeaderSize || userPtr > a.regionEnd {
		return fault.ErrInvalidPointer
	}
	headerOff := userPtr - HeaderSize
	if headerOff < a.regionStart || headerOff >= a.regionEnd {
		return fault.ErrInvalidPointer
	}
	return nil
}

// GetAllocationSize returns the payload size of the live block at
// userPtr, or 0 for a null or invalid pointer.
func (a *Allocator) GetAllocationSize(userPtr uint32) uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if userPtr == 0 {
		return 0
	}
	if err := a.validateUserPointer(userPtr); err != nil {
		return 0
	}
	return blockhdr.HeaderForUserPointer(a.buf, userPtr).PayloadSize()
}

// walkBlocks visits every physical block from the region start through
// and including the sentinel, in order. visit returning false stops the
// walk early.
func (a *Allocator) walkBlocks(visit func(h blockhdr.Header) bool) {
	off := a.regionStart
	for {
		h := blockhdr.At(a.buf, off)
		if !visit(h) {
			return
		}
		if h.PayloadSize() == 0 {
			return
		}
		off = h.NextOffset()
	}
}
