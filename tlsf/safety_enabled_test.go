//go:build safety

package tlsf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafetyStompsFreedPayload(t *testing.T) {
	a := newPool(t, 4096)
	p := a.Allocate(32, 1, 0)
	a.buf[p] = 0x42

	require.NoError(t, a.Free(p))
	for i := p; i < p+32; i++ {
		assert.Equal(t, byte(stompByte), a.buf[i])
	}
}

func TestSafetyRejectsFreeOfUnknownPointer(t *testing.T) {
	a := newPool(t, 4096)
	p := a.Allocate(32, 1, 0)
	require.NoError(t, a.Free(p))

	// p is now a real (if stale) header offset, so validateUserPointer
	// passes and IsFree() is true -> ordinary double-free path. Forge an
	// address that still lands inside the region but was never handed
	// out by Allocate to exercise the bloom-filter pre-check instead:
	// p+16 puts its would-be header in the stomped 0xCC bytes past the
	// free-list links, whose free bit is clear.
	fake := p + 16
	err := a.Free(fake)
	assert.Error(t, err)
}

func TestIsValidMemoryRange(t *testing.T) {
	a := newPool(t, 4096)
	p := a.Allocate(64, 1, 0)

	assert.True(t, a.IsValidMemoryRange(p, 64))
	assert.True(t, a.IsValidMemoryRange(p, 8))
	assert.False(t, a.IsValidMemoryRange(p, 65536))
	assert.False(t, a.IsValidMemoryRange(p+10000, 1))

	require.NoError(t, a.Free(p))
	assert.False(t, a.IsValidMemoryRange(p, 1), "freed blocks are no longer a valid range")
}
