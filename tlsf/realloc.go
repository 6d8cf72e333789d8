package tlsf

import "github.com/nmxmxh/guerrero/internal/blockhdr"

// Reallocate resizes the block at oldPtr to newSize, returning the
// (possibly unchanged) user pointer, or 0 on OOM — in which case oldPtr
// is left completely untouched. newSize == 0 frees
// oldPtr and returns 0; oldPtr == 0 behaves as Allocate.
//
// Three paths, tried in order: shrink in place (splitting off and
// freeing the tail), grow in place (absorbing a free right neighbor),
// and move (allocate + copy + free). The move path registers the new
// pointer and transfers the old pointer's children to it via
// registry.Registry.Move before freeing the old block, so a concurrent
// registry walk never observes an orphaned child.
func (a *Allocator) Reallocate(oldPtr, newSize, owner, parent uint32) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if newSize == 0 {
		a.freeLocked(oldPtr)
		return 0
	}
	if oldPtr == 0 {
		return a.allocateLocked(newSize, owner, parent)
	}
	if err := a.validateUserPointer(oldPtr); err != nil {
		return 0
	}

	h := blockhdr.HeaderForUserPointer(a.buf, oldPtr)
	if h.IsFree() {
		return 0
	}

	req := alignUp(newSize, AlignSize)
	if req < MinPayloadSize {
		req = MinPayloadSize
	}
	oldPayload := h.PayloadSize()
	if req == oldPayload {
		return oldPtr
	}

	if req < oldPayload {
		a.splitAndTrim(h, req)
		a.statsRealloc(oldPayload, h.PayloadSize())
		return oldPtr
	}

	if next := h.Next(); next.IsFree() {
		combined := oldPayload + HeaderSize + next.PayloadSize()
		if combined >= req {
			a.removeFreeBlock(next)
			a.resizeBlock(h, combined)
			a.splitAndTrim(h, req)
			a.statsRealloc(oldPayload, h.PayloadSize())
			return oldPtr
		}
	}

	newPtr := a.allocateLocked(req, owner, parent)
	if newPtr == 0 {
		return 0
	}
	copyLen := oldPayload
	if req < copyLen {
		copyLen = req
	}
	copy(a.buf[newPtr:newPtr+copyLen], a.buf[oldPtr:oldPtr+copyLen])

	if a.registry != nil {
		a.registry.Move(oldPtr, newPtr)
	}
	a.freeLocked(oldPtr)

	return newPtr
}
