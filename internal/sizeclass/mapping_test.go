package sizeclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertSmallRange(t *testing.T) {
	fl, sl := Insert(0)
	assert.Equal(t, 0, fl)
	assert.Equal(t, 0, sl)

	fl, sl = Insert(SmallBlockSize - 1)
	assert.Equal(t, 0, fl)
	assert.True(t, sl < SLIndexCount)
}

func TestInsertBoundary(t *testing.T) {
	fl, sl := Insert(SmallBlockSize)
	assert.Equal(t, 1, fl)
	assert.Equal(t, 0, sl)
}

func TestSearchRoundsUp(t *testing.T) {
	// For any size in the large regime, Search must land on a class whose
	// minimum representable size is >= size (mapping_search guarantees a
	// fit on first match).
	for _, size := range []uint32{200, 1000, 5000, 1 << 20, 1<<20 + 17} {
		fl, sl, ok := Search(size)
		assert.True(t, ok)
		assert.True(t, fl >= 0 && fl < FLIndexCount)
		assert.True(t, sl >= 0 && sl < SLIndexCount)
		// Lowest payload size of class (fl, sl); every size here is in the
		// large regime, so fl >= 1.
		classMin := uint32(1)<<uint(fl+FLIndexShift-1) | uint32(sl)<<uint(fl+FLIndexShift-1-SLIndexLog2)
		assert.GreaterOrEqual(t, classMin, size)
	}
}

func TestSearchOverflow(t *testing.T) {
	_, _, ok := Search(MaxPayloadSize + 1)
	assert.False(t, ok)
}

func TestInsertMonotonic(t *testing.T) {
	prevFL, _ := Insert(SmallBlockSize)
	for size := uint32(SmallBlockSize) + 17; size < SmallBlockSize*8; size += 17 {
		fl, _ := Insert(size)
		assert.True(t, fl >= prevFL, "fl must not decrease as size grows")
		prevFL = fl
	}
}
