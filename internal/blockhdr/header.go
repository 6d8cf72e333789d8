// Package blockhdr packs and unpacks TLSF block headers directly on top of
// a shared byte buffer, the same "offset is the reference" discipline
// nmxmxh-inos_v1/kernel/threads/arena/buddy.go uses for its free-list
// links (writeU32/getNextFree).
package blockhdr

import "encoding/binary"

const (
	// HeaderSize is the on-disk size of prev_phys_block + size_and_flags.
	HeaderSize = 8

	// FreeBit marks a block as free (low bit of size_and_flags).
	FreeBit uint32 = 1 << 0
	// PrevFreeBit marks the physically previous block as free.
	PrevFreeBit uint32 = 1 << 1

	flagMask = FreeBit | PrevFreeBit

	// NullFreeLink is the "no link" sentinel for free-list next/prev
	// pointers, distinct from offset 0 which is a valid header offset.
	NullFreeLink uint32 = 0xFFFFFFFF
)

// Header is a thin, stateless view over a block header at a given byte
// offset inside buf. It never copies or caches bytes; every accessor
// reads or writes buf directly.
type Header struct {
	buf []byte
	off uint32
}

// At returns a Header for the block header beginning at off in buf.
func At(buf []byte, off uint32) Header {
	return Header{buf: buf, off: off}
}

// Offset returns the header's own offset.
func (h Header) Offset() uint32 { return h.off }

func (h Header) PrevPhysBlock() uint32 {
	return binary.LittleEndian.Uint32(h.buf[h.off : h.off+4])
}

func (h Header) SetPrevPhysBlock(v uint32) {
	binary.LittleEndian.PutUint32(h.buf[h.off:h.off+4], v)
}

func (h Header) sizeAndFlags() uint32 {
	return binary.LittleEndian.Uint32(h.buf[h.off+4 : h.off+8])
}

func (h Header) setSizeAndFlags(v uint32) {
	binary.LittleEndian.PutUint32(h.buf[h.off+4:h.off+8], v)
}

// PayloadSize returns the block's payload size, flag bits masked off.
func (h Header) PayloadSize() uint32 {
	return h.sizeAndFlags() &^ flagMask
}

// SetPayloadSize rewrites the payload size, preserving the flag bits.
func (h Header) SetPayloadSize(size uint32) {
	h.setSizeAndFlags((h.sizeAndFlags() & flagMask) | (size &^ flagMask))
}

func (h Header) IsFree() bool     { return h.sizeAndFlags()&FreeBit != 0 }
func (h Header) IsPrevFree() bool { return h.sizeAndFlags()&PrevFreeBit != 0 }

func (h Header) setFlag(bit uint32, set bool) {
	v := h.sizeAndFlags()
	if set {
		v |= bit
	} else {
		v &^= bit
	}
	h.setSizeAndFlags(v)
}

func (h Header) SetFree(free bool)         { h.setFlag(FreeBit, free) }
func (h Header) SetPrevFreeFlag(free bool) { h.setFlag(PrevFreeBit, free) }

// UserPointer returns the pointer a caller sees for this block: the
// header offset plus the header's own size.
func (h Header) UserPointer() uint32 { return h.off + HeaderSize }

// HeaderForUserPointer recovers a block Header from a user pointer.
func HeaderForUserPointer(buf []byte, userPtr uint32) Header {
	return At(buf, userPtr-HeaderSize)
}

// NextOffset returns the offset of the physically next block's header.
func (h Header) NextOffset() uint32 {
	return h.off + HeaderSize + h.PayloadSize()
}

// Next returns the physically next block's Header.
func (h Header) Next() Header { return At(h.buf, h.NextOffset()) }

// PrevOffset returns the offset of the physically previous block. Only
// valid when IsPrevFree() is true.
func (h Header) PrevOffset() uint32 { return h.PrevPhysBlock() }

// Prev returns the physically previous block's Header. Only valid when
// IsPrevFree() is true.
func (h Header) Prev() Header { return At(h.buf, h.PrevOffset()) }

// LinkNext writes this block's offset into the next physical block's
// prev_phys_block field and returns the next block's offset.
func (h Header) LinkNext() uint32 {
	next := h.NextOffset()
	At(h.buf, next).SetPrevPhysBlock(h.off)
	return next
}

// MarkAsFree marks h free and sets the next physical block's PrevFreeBit.
func (h Header) MarkAsFree() {
	h.SetFree(true)
	h.Next().SetPrevFreeFlag(true)
}

// MarkAsUsed marks h used and clears the next physical block's PrevFreeBit.
func (h Header) MarkAsUsed() {
	h.SetFree(false)
	h.Next().SetPrevFreeFlag(false)
}

// --- free-list links, stored in the first 8 bytes of a free block's payload ---

func (h Header) payloadOffset() uint32 { return h.off + HeaderSize }

func (h Header) NextFreeLink() uint32 {
	return binary.LittleEndian.Uint32(h.buf[h.payloadOffset() : h.payloadOffset()+4])
}

func (h Header) SetNextFreeLink(v uint32) {
	binary.LittleEndian.PutUint32(h.buf[h.payloadOffset():h.payloadOffset()+4], v)
}

func (h Header) PrevFreeLink() uint32 {
	return binary.LittleEndian.Uint32(h.buf[h.payloadOffset()+4 : h.payloadOffset()+8])
}

func (h Header) SetPrevFreeLink(v uint32) {
	binary.LittleEndian.PutUint32(h.buf[h.payloadOffset()+4:h.payloadOffset()+8], v)
}
