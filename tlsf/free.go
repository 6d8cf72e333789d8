package tlsf

import (
	"github.com/nmxmxh/guerrero/internal/blockhdr"
	"github.com/nmxmxh/guerrero/internal/fault"
)

// Free releases the block at userPtr, merging with free physical
// neighbors. Freeing 0 is a no-op. Returns fault.ErrInvalidPointer for a
// pointer outside the managed region and fault.ErrDoubleFree for a
// pointer that is already free.
func (a *Allocator) Free(userPtr uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.freeLocked(userPtr)
}

func (a *Allocator) freeLocked(userPtr uint32) error {
	if userPtr == 0 {
		return nil
	}
	if err := a.validateUserPointer(userPtr); err != nil {
		return err
	}

	h := blockhdr.HeaderForUserPointer(a.buf, userPtr)
	if h.IsFree() {
		return fault.ErrDoubleFree
	}
	if err := a.safetyCheckFree(userPtr); err != nil {
		return err
	}

	if a.registry != nil {
		a.registry.Unregister(userPtr)
	}

	a.safetyStomp(h)

	h.MarkAsFree()
	h = a.mergeLeft(h)
	h = a.mergeRight(h)

	a.statsFree(h.PayloadSize())
	a.insertFreeBlock(h)
	a.safetyUntrackAlloc(userPtr)

	return nil
}
