package view

import (
	"encoding/binary"

	"github.com/nmxmxh/guerrero/internal/fault"
	"github.com/nmxmxh/guerrero/schema"
)

// Dynamic-array control block layout: the field slot
// holds a u32 pointer to a small fixed allocation —
// length(u32) | capacity(u32) | elements_ptr(u32) — whose elements_ptr in
// turn points at a *separate* allocation of capacity*stride bytes. Growth
// reallocates only that second allocation; the control block itself never
// moves once created.
const arrayCtrlSize = 12

const (
	arrayOffLength   = 0
	arrayOffCapacity = 4
	arrayOffElements = 8
)

func (v *View) arrayStride(p *schema.PropertyLayout) uint32 {
	size, _ := schema.SizeAndAlignOf(p.Info.ElementInfo)
	return size
}

func (v *View) arrayElementIsRecord(p *schema.PropertyLayout) bool {
	return p.Info.ElementInfo != nil && p.Info.ElementInfo.NestedSchema != nil
}

// ArrayLength returns the number of live elements (0 for an unallocated
// field).
func (v *View) ArrayLength(key string) (uint32, error) {
	p, err := v.prop(key)
	if err != nil {
		return 0, err
	}
	if p.Info.Kind != schema.KindDynamicArray {
		return 0, fault.ErrTypeError
	}
	ctrl := v.controlPtr(p)
	if ctrl == 0 {
		return 0, nil
	}
	return binary.LittleEndian.Uint32(v.buf[ctrl+arrayOffLength : ctrl+arrayOffLength+4]), nil
}

// ArrayCapacity returns the backing element storage's element capacity
// (0 for an unallocated field).
func (v *View) ArrayCapacity(key string) (uint32, error) {
	p, err := v.prop(key)
	if err != nil {
		return 0, err
	}
	if p.Info.Kind != schema.KindDynamicArray {
		return 0, fault.ErrTypeError
	}
	ctrl := v.controlPtr(p)
	if ctrl == 0 {
		return 0, nil
	}
	return binary.LittleEndian.Uint32(v.buf[ctrl+arrayOffCapacity : ctrl+arrayOffCapacity+4]), nil
}

func (v *View) arrayElementsPtr(ctrl uint32) uint32 {
	return binary.LittleEndian.Uint32(v.buf[ctrl+arrayOffElements : ctrl+arrayOffElements+4])
}

func (v *View) setArrayElementsPtr(ctrl, ptr uint32) {
	binary.LittleEndian.PutUint32(v.buf[ctrl+arrayOffElements:ctrl+arrayOffElements+4], ptr)
}

func (v *View) ensureArrayCtrl(p *schema.PropertyLayout) (uint32, error) {
	ctrl := v.controlPtr(p)
	if ctrl != 0 {
		return ctrl, nil
	}
	if v.allocator == nil {
		return 0, fault.ErrTypeError
	}
	ctrl = v.allocator.Allocate(arrayCtrlSize, 0, v.offset)
	if ctrl == 0 {
		return 0, fault.ErrOutOfMemory
	}
	binary.LittleEndian.PutUint32(v.buf[ctrl+arrayOffLength:ctrl+arrayOffLength+4], 0)
	binary.LittleEndian.PutUint32(v.buf[ctrl+arrayOffCapacity:ctrl+arrayOffCapacity+4], 0)
	v.setArrayElementsPtr(ctrl, 0)
	v.setControlPtr(p, ctrl)
	return ctrl, nil
}

// arrayElementOffset returns the absolute buffer offset of element i
// inside the elements block; caller must have already range-checked i.
func (v *View) arrayElementOffset(elementsPtr uint32, stride uint32, i uint32) uint32 {
	return elementsPtr + i*stride
}

func (v *View) arrayGrow(p *schema.PropertyLayout, ctrl uint32, needCapacity uint32) error {
	stride := v.arrayStride(p)
	capacity := binary.LittleEndian.Uint32(v.buf[ctrl+arrayOffCapacity : ctrl+arrayOffCapacity+4])
	if needCapacity <= capacity {
		return nil
	}
	newCapacity := capacity * 2
	if newCapacity < 4 {
		newCapacity = 4
	}
	if newCapacity < needCapacity {
		newCapacity = needCapacity
	}

	oldElements := v.arrayElementsPtr(ctrl)
	newSize := newCapacity * stride

	var newElements uint32
	if oldElements != 0 {
		newElements = v.allocator.Reallocate(oldElements, newSize, 0, ctrl)
	} else {
		newElements = v.allocator.Allocate(newSize, 0, ctrl)
	}
	if newElements == 0 {
		return fault.ErrOutOfMemory
	}

	length := binary.LittleEndian.Uint32(v.buf[ctrl+arrayOffLength : ctrl+arrayOffLength+4])
	clearFrom := length * stride
	for i := clearFrom; i < newSize; i++ {
		v.buf[newElements+i] = 0
	}

	if oldElements != 0 && oldElements != newElements && v.allocator.Registry() != nil && v.arrayElementIsRecord(p) {
		reg := v.allocator.Registry()
		for i := uint32(0); i < length; i++ {
			reg.ReparentChildrenOf(oldElements+i*stride, newElements+i*stride)
		}
	}

	v.setArrayElementsPtr(ctrl, newElements)
	binary.LittleEndian.PutUint32(v.buf[ctrl+arrayOffCapacity:ctrl+arrayOffCapacity+4], newCapacity)
	return nil
}

// ArrayGetUint reads element i of a dynamic array of unsigned primitives.
func (v *View) ArrayGetUint(key string, i uint32) (uint64, error) {
	p, ctrl, err := v.arrayBoundsCheck(key, i)
	if err != nil {
		return 0, err
	}
	elements := v.arrayElementsPtr(ctrl)
	off := v.arrayElementOffset(elements, v.arrayStride(p), i)
	return readUint(v.buf, off, p.Info.ElementInfo.Primitive), nil
}

// ArraySetUint overwrites element i of a dynamic array of unsigned
// primitives; i must already be within [0, length).
func (v *View) ArraySetUint(key string, i uint32, val uint64) error {
	p, ctrl, err := v.arrayBoundsCheck(key, i)
	if err != nil {
		return err
	}
	elements := v.arrayElementsPtr(ctrl)
	off := v.arrayElementOffset(elements, v.arrayStride(p), i)
	writeUint(v.buf, off, p.Info.ElementInfo.Primitive, val)
	return nil
}

func (v *View) arrayBoundsCheck(key string, i uint32) (*schema.PropertyLayout, uint32, error) {
	p, err := v.prop(key)
	if err != nil {
		return nil, 0, err
	}
	if p.Info.Kind != schema.KindDynamicArray {
		return nil, 0, fault.ErrTypeError
	}
	ctrl := v.controlPtr(p)
	if ctrl == 0 {
		return nil, 0, fault.ErrRangeError
	}
	length := binary.LittleEndian.Uint32(v.buf[ctrl+arrayOffLength : ctrl+arrayOffLength+4])
	if i >= length {
		return nil, 0, fault.ErrRangeError
	}
	return p, ctrl, nil
}

// ArrayPushUint appends a primitive element, growing the backing storage
// if needed.
func (v *View) ArrayPushUint(key string, val uint64) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindDynamicArray {
		return fault.ErrTypeError
	}
	if v.allocator == nil {
		return fault.ErrTypeError
	}
	ctrl, err := v.ensureArrayCtrl(p)
	if err != nil {
		return err
	}
	length := binary.LittleEndian.Uint32(v.buf[ctrl+arrayOffLength : ctrl+arrayOffLength+4])
	if err := v.arrayGrow(p, ctrl, length+1); err != nil {
		return err
	}
	elements := v.arrayElementsPtr(ctrl)
	off := v.arrayElementOffset(elements, v.arrayStride(p), length)
	writeUint(v.buf, off, p.Info.ElementInfo.Primitive, val)
	binary.LittleEndian.PutUint32(v.buf[ctrl+arrayOffLength:ctrl+arrayOffLength+4], length+1)
	return nil
}

// ArrayPushElement grows the array by one record-typed element and
// returns a View over the freshly zeroed slot for the caller to
// populate.
func (v *View) ArrayPushElement(key string) (*View, error) {
	p, err := v.prop(key)
	if err != nil {
		return nil, err
	}
	if p.Info.Kind != schema.KindDynamicArray || !v.arrayElementIsRecord(p) {
		return nil, fault.ErrTypeError
	}
	if v.allocator == nil {
		return nil, fault.ErrTypeError
	}
	ctrl, err := v.ensureArrayCtrl(p)
	if err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(v.buf[ctrl+arrayOffLength : ctrl+arrayOffLength+4])
	if err := v.arrayGrow(p, ctrl, length+1); err != nil {
		return nil, err
	}
	elements := v.arrayElementsPtr(ctrl)
	off := v.arrayElementOffset(elements, v.arrayStride(p), length)
	binary.LittleEndian.PutUint32(v.buf[ctrl+arrayOffLength:ctrl+arrayOffLength+4], length+1)
	return New(v.buf, off, v.allocator, p.Info.ElementInfo.NestedSchema), nil
}

// ArrayElement returns a View over element i of a record-typed dynamic
// array.
func (v *View) ArrayElement(key string, i uint32) (*View, error) {
	p, ctrl, err := v.arrayBoundsCheck(key, i)
	if err != nil {
		return nil, err
	}
	if !v.arrayElementIsRecord(p) {
		return nil, fault.ErrTypeError
	}
	elements := v.arrayElementsPtr(ctrl)
	off := v.arrayElementOffset(elements, v.arrayStride(p), i)
	return New(v.buf, off, v.allocator, p.Info.ElementInfo.NestedSchema), nil
}

// ArrayPopUint removes and returns the last element of a primitive array.
func (v *View) ArrayPopUint(key string) (uint64, bool, error) {
	p, err := v.prop(key)
	if err != nil {
		return 0, false, err
	}
	if p.Info.Kind != schema.KindDynamicArray {
		return 0, false, fault.ErrTypeError
	}
	ctrl := v.controlPtr(p)
	if ctrl == 0 {
		return 0, false, nil
	}
	length := binary.LittleEndian.Uint32(v.buf[ctrl+arrayOffLength : ctrl+arrayOffLength+4])
	if length == 0 {
		return 0, false, nil
	}
	elements := v.arrayElementsPtr(ctrl)
	off := v.arrayElementOffset(elements, v.arrayStride(p), length-1)
	val := readUint(v.buf, off, p.Info.ElementInfo.Primitive)
	binary.LittleEndian.PutUint32(v.buf[ctrl+arrayOffLength:ctrl+arrayOffLength+4], length-1)
	return val, true, nil
}

// ArrayPop removes the last element of a record-typed array, recursively
// freeing any dynamic children it owns first, and reports whether an
// element was present.
func (v *View) ArrayPop(key string) (bool, error) {
	p, err := v.prop(key)
	if err != nil {
		return false, err
	}
	if p.Info.Kind != schema.KindDynamicArray {
		return false, fault.ErrTypeError
	}
	ctrl := v.controlPtr(p)
	if ctrl == 0 {
		return false, nil
	}
	length := binary.LittleEndian.Uint32(v.buf[ctrl+arrayOffLength : ctrl+arrayOffLength+4])
	if length == 0 {
		return false, nil
	}
	if v.arrayElementIsRecord(p) {
		elements := v.arrayElementsPtr(ctrl)
		off := v.arrayElementOffset(elements, v.arrayStride(p), length-1)
		elem := New(v.buf, off, v.allocator, p.Info.ElementInfo.NestedSchema)
		for i := range elem.schema.Properties {
			if err := elem.freeProperty(&elem.schema.Properties[i]); err != nil {
				return false, err
			}
		}
	}
	binary.LittleEndian.PutUint32(v.buf[ctrl+arrayOffLength:ctrl+arrayOffLength+4], length-1)
	return true, nil
}

func (v *View) freeDynamicArrayField(p *schema.PropertyLayout) error {
	ctrl := v.controlPtr(p)
	if ctrl == 0 {
		return nil
	}
	length := binary.LittleEndian.Uint32(v.buf[ctrl+arrayOffLength : ctrl+arrayOffLength+4])
	elements := v.arrayElementsPtr(ctrl)
	if elements != 0 && v.arrayElementIsRecord(p) {
		stride := v.arrayStride(p)
		for i := uint32(0); i < length; i++ {
			off := v.arrayElementOffset(elements, stride, i)
			elem := New(v.buf, off, v.allocator, p.Info.ElementInfo.NestedSchema)
			for j := range elem.schema.Properties {
				if err := elem.freeProperty(&elem.schema.Properties[j]); err != nil {
					return err
				}
			}
		}
	}
	if elements != 0 {
		if err := v.allocator.Free(elements); err != nil {
			return err
		}
	}
	if err := v.allocator.Free(ctrl); err != nil {
		return err
	}
	v.setControlPtr(p, 0)
	return nil
}
