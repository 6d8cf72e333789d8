package blockhdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	h := At(buf, 0)

	h.SetPrevPhysBlock(0xDEADBEEF)
	h.SetPayloadSize(32)
	h.SetFree(true)
	h.SetPrevFreeFlag(true)

	assert.Equal(t, uint32(0xDEADBEEF), h.PrevPhysBlock())
	assert.Equal(t, uint32(32), h.PayloadSize())
	assert.True(t, h.IsFree())
	assert.True(t, h.IsPrevFree())

	h.SetPayloadSize(48)
	assert.Equal(t, uint32(48), h.PayloadSize())
	assert.True(t, h.IsFree(), "SetPayloadSize must preserve flags")
	assert.True(t, h.IsPrevFree())
}

func TestUserPointerRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	h := At(buf, 16)
	up := h.UserPointer()
	require.Equal(t, uint32(16+HeaderSize), up)
	assert.Equal(t, h.Offset(), HeaderForUserPointer(buf, up).Offset())
}

func TestNextAndLink(t *testing.T) {
	buf := make([]byte, 64)
	h := At(buf, 0)
	h.SetPayloadSize(16)

	next := h.LinkNext()
	assert.Equal(t, h.NextOffset(), next)
	assert.Equal(t, uint32(0), At(buf, next).PrevPhysBlock())
}

func TestMarkFreeUsed(t *testing.T) {
	buf := make([]byte, 64)
	h := At(buf, 0)
	h.SetPayloadSize(8)
	nextHdr := At(buf, h.NextOffset())
	nextHdr.SetPayloadSize(0)

	h.MarkAsFree()
	assert.True(t, h.IsFree())
	assert.True(t, nextHdr.IsPrevFree())

	h.MarkAsUsed()
	assert.False(t, h.IsFree())
	assert.False(t, nextHdr.IsPrevFree())
}

func TestFreeListLinks(t *testing.T) {
	buf := make([]byte, 64)
	h := At(buf, 0)
	h.SetNextFreeLink(NullFreeLink)
	h.SetPrevFreeLink(NullFreeLink)
	assert.Equal(t, NullFreeLink, h.NextFreeLink())
	assert.Equal(t, NullFreeLink, h.PrevFreeLink())

	h.SetNextFreeLink(8)
	assert.Equal(t, uint32(8), h.NextFreeLink())
}
