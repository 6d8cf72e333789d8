package tlsf

import (
	"github.com/nmxmxh/guerrero/internal/blockhdr"
	"github.com/nmxmxh/guerrero/internal/sizeclass"
)

// Allocate reserves size bytes and returns a user pointer, or 0 on
// exhaustion — allocation failure never corrupts the pool. owner and
// parent are only consulted when the allocator was built with a
// registry.Registry; parent == 0 registers the allocation as a root.
func (a *Allocator) Allocate(size, owner, parent uint32) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocateLocked(size, owner, parent)
}

func (a *Allocator) allocateLocked(size, owner, parent uint32) uint32 {
	if size == 0 {
		return 0
	}

	req := alignUp(size, AlignSize)
	if req < MinPayloadSize {
		req = MinPayloadSize
	}

	fl, sl, ok := sizeclass.Search(req)
	if !ok {
		a.statsFail()
		return 0
	}

	off, found := a.searchSuitable(fl, sl)
	if !found {
		a.statsFail()
		return 0
	}

	h := blockhdr.At(a.buf, off)
	a.removeFreeBlock(h)
	a.splitAndTrim(h, req)
	h.MarkAsUsed()
	a.zeroPayload(h)

	if a.registry != nil {
		a.registry.Register(h.UserPointer(), owner, parent)
	}
	a.safetyTrackAlloc(h.UserPointer())
	a.statsAlloc(h.PayloadSize())

	return h.UserPointer()
}

func (a *Allocator) zeroPayload(h blockhdr.Header) {
	start := h.UserPointer()
	end := start + h.PayloadSize()
	for i := start; i < end; i++ {
		a.buf[i] = 0
	}
}
