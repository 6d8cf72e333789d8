package view

import (
	"encoding/binary"

	"github.com/nmxmxh/guerrero/internal/fault"
	"github.com/nmxmxh/guerrero/schema"
)

// String reads a dynamic-string field. An empty/unset
// slot (control pointer 0) decodes as "".
func (v *View) String(key string) (string, error) {
	p, err := v.prop(key)
	if err != nil {
		return "", err
	}
	if p.Info.Kind != schema.KindDynamicString {
		return "", fault.ErrTypeError
	}
	ctrl := v.controlPtr(p)
	if ctrl == 0 {
		return "", nil
	}
	length := binary.LittleEndian.Uint32(v.buf[ctrl : ctrl+4])
	return string(v.buf[ctrl+4 : ctrl+4+length]), nil
}

// SetString reallocates the control block to fit s and stores it.
// Assigning "" frees any existing allocation and sets the slot to null
// (an empty string elides the allocation).
func (v *View) SetString(key string, s string) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindDynamicString {
		return fault.ErrTypeError
	}
	if v.allocator == nil {
		return fault.ErrTypeError
	}

	old := v.controlPtr(p)

	if s == "" {
		if old != 0 {
			if err := v.allocator.Free(old); err != nil {
				return err
			}
		}
		v.setControlPtr(p, 0)
		return nil
	}

	need := uint32(4 + len(s))
	var ctrl uint32
	if old != 0 {
		ctrl = v.allocator.Reallocate(old, need, 0, v.offset)
	} else {
		ctrl = v.allocator.Allocate(need, 0, v.offset)
	}
	if ctrl == 0 {
		return fault.ErrOutOfMemory
	}

	binary.LittleEndian.PutUint32(v.buf[ctrl:ctrl+4], uint32(len(s)))
	copy(v.buf[ctrl+4:ctrl+4+uint32(len(s))], s)
	v.setControlPtr(p, ctrl)
	return nil
}

// SwapString transfers the string control pointer from other's field to
// this view's field directly, without copying bytes — this view's prior
// allocation (if any) is freed first — swap transfers by pointer, not
// by value.
func (v *View) SwapString(key string, other *View, otherKey string) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	op, err := other.prop(otherKey)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindDynamicString || op.Info.Kind != schema.KindDynamicString {
		return fault.ErrTypeError
	}

	old := v.controlPtr(p)
	moved := other.controlPtr(op)

	if old != 0 && v.allocator != nil {
		if err := v.allocator.Free(old); err != nil {
			return err
		}
	}
	v.setControlPtr(p, moved)
	other.setControlPtr(op, 0)
	return nil
}

// FreeString releases the control block backing a dynamic-string field,
// if any, and resets the slot to null.
func (v *View) FreeString(key string) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindDynamicString {
		return fault.ErrTypeError
	}
	ctrl := v.controlPtr(p)
	if ctrl == 0 {
		return nil
	}
	if v.allocator == nil {
		return fault.ErrTypeError
	}
	if err := v.allocator.Free(ctrl); err != nil {
		return err
	}
	v.setControlPtr(p, 0)
	return nil
}
