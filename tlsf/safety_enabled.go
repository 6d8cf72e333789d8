//go:build safety

package tlsf

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/nmxmxh/guerrero/internal/blockhdr"
	"github.com/nmxmxh/guerrero/internal/fault"
)

// stompByte is written over a block's payload when it is freed, so a
// stray read through a dangling pointer sees an obviously-wrong pattern
// instead of whatever the next allocation happens to write there.
const stompByte = 0xCC

// safetyState adds a probabilistic pointer check on top of the
// authoritative header-bit checks already done in free.go: every pointer
// Allocate hands out is added to allocated, and Free rejects a pointer
// that filter has never seen. Freed pointers are added to freed; no
// check reads that filter. This is the same "cheap filter beside the
// real lookup" shape as nmxmxh-inos_v1/kernel/core/mesh/gossip.go's
// seenFilter. A bloom filter
// never false-negatives, so a miss against allocated is conclusive proof
// the pointer was never handed out by this allocator.
type safetyState struct {
	allocated *bloom.BloomFilter
	freed     *bloom.BloomFilter
}

func ptrKey(ptr uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], ptr)
	return b[:]
}

func (a *Allocator) ensureSafetyFilters() {
	if a.safety.allocated == nil {
		a.safety.allocated = bloom.NewWithEstimates(4096, 0.01)
		a.safety.freed = bloom.NewWithEstimates(4096, 0.01)
	}
}

func (a *Allocator) safetyTrackAlloc(ptr uint32) {
	a.ensureSafetyFilters()
	a.safety.allocated.Add(ptrKey(ptr))
}

func (a *Allocator) safetyUntrackAlloc(ptr uint32) {
	a.ensureSafetyFilters()
	a.safety.freed.Add(ptrKey(ptr))
}

func (a *Allocator) safetyCheckFree(ptr uint32) error {
	a.ensureSafetyFilters()
	if !a.safety.allocated.Test(ptrKey(ptr)) {
		return fault.ErrUseAfterFree
	}
	return nil
}

func (a *Allocator) safetyStomp(h blockhdr.Header) {
	start := h.UserPointer()
	end := start + h.PayloadSize()
	for i := start; i < end; i++ {
		a.buf[i] = stompByte
	}
}

// IsValidMemoryRange reports whether [userPtr, userPtr+size) lies
// entirely inside a single, currently-used block. Built only under the
// safety tag since it walks every physical block — an O(n) diagnostic,
// not something the hot allocate/free path relies on.
func (a *Allocator) IsValidMemoryRange(userPtr, size uint32) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if size == 0 {
		return false
	}
	valid := false
	a.walkBlocks(func(h blockhdr.Header) bool {
		if h.PayloadSize() == 0 || h.IsFree() {
			return true
		}
		blockStart := h.UserPointer()
		blockEnd := blockStart + h.PayloadSize()
		if userPtr >= blockStart && userPtr+size <= blockEnd && userPtr+size >= userPtr {
			valid = true
			return false
		}
		return true
	})
	return valid
}
