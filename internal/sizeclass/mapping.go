// Package sizeclass maps a payload size to (first-level, second-level)
// indices into the TLSF free-list table, the same size-class-table idea
// cloudfly-readgo/runtime/msize.go uses (class_to_size / sizeToClass) for
// Go's own small-object allocator, generalized to TLSF's two-level scheme.
package sizeclass

import "github.com/nmxmxh/guerrero/internal/bitutil"

const (
	// AlignSize is the allocator's alignment quantum. A power of two.
	AlignSize = 4
	alignLog2 = 2 // log2(AlignSize)

	// SLIndexLog2 is the number of second-level bits; SLIndexCount is the
	// number of second-level slots per first-level row.
	SLIndexLog2 = 5
	SLIndexCount = 1 << SLIndexLog2

	// FLIndexShift is where the "small size" regime ends: below
	// 1<<FLIndexShift, sizes are linearly bucketed by AlignSize instead of
	// by bit position.
	FLIndexShift = SLIndexLog2 + alignLog2 // 7 -> SmallBlockSize = 128

	// SmallBlockSize is the threshold below which fl is always 0.
	SmallBlockSize = 1 << FLIndexShift

	// FLIndexMax bounds the largest representable block (payload sizes up
	// to ~1GiB), matching the classic TLSF reference parameterization.
	FLIndexMax = 30

	// FLIndexCount is the number of first-level rows in the table.
	FLIndexCount = FLIndexMax - FLIndexShift + 1

	// MaxPayloadSize is the largest payload mapping_search will accept.
	MaxPayloadSize = (uint32(1) << FLIndexMax) - 1
)

// Insert computes the exact (fl, sl) cell a block of exactly size bytes
// belongs to. Used when inserting a free block into the table.
func Insert(size uint32) (fl, sl int) {
	if size < SmallBlockSize {
		return 0, int(size / (SmallBlockSize / SLIndexCount))
	}
	f := bitutil.FLS32(size)
	s := int(size>>uint(f-SLIndexLog2)) ^ (1 << SLIndexLog2)
	return f - (FLIndexShift - 1), s
}

// Search computes the (fl, sl) cell of the smallest class guaranteed to
// satisfy a request of at least size bytes: it rounds size up to the next
// class boundary first so the first non-empty cell found at or after
// (fl, sl) is always a valid fit.
//
// ok is false if size overflows the largest representable class.
func Search(size uint32) (fl, sl int, ok bool) {
	if size > MaxPayloadSize {
		return 0, 0, false
	}
	if size >= SmallBlockSize {
		f := bitutil.FLS32(size)
		round := (uint32(1) << uint(f-SLIndexLog2)) - 1
		if size > MaxPayloadSize-round {
			return 0, 0, false
		}
		size += round
	}
	fl, sl = Insert(size)
	return fl, sl, true
}
