package view

import (
	"encoding/binary"

	"github.com/nmxmxh/guerrero/internal/fault"
	"github.com/nmxmxh/guerrero/schema"
)

// Sparse-set control block layout:
//   count(u32) | dense_ptr(u32) | sparse_ptr(u32)
// dense_ptr and sparse_ptr each point at their own dynamic-array-of-u32
// control block (length|capacity|elements_ptr, the same shape
// array_view.go uses) — ids only, no payload. dense holds the live ids
// in insertion-agnostic, removal-compacted order; sparse[id] holds the
// index of id within dense, and is only meaningful when
// dense[sparse[id]] == id.
const sparseSetCtrlSize = 12

const (
	sparseOffCount  = 0
	sparseOffDense  = 4
	sparseOffSparse = 8
)

const sparseSentinel = ^uint32(0)

func (v *View) sparseCheck(key string) (*schema.PropertyLayout, uint32, error) {
	p, err := v.prop(key)
	if err != nil {
		return nil, 0, err
	}
	if p.Info.Kind != schema.KindSparseSet {
		return nil, 0, fault.ErrTypeError
	}
	return p, v.controlPtr(p), nil
}

func (v *View) ensureSparseSetCtrl(p *schema.PropertyLayout) (uint32, error) {
	ctrl := v.controlPtr(p)
	if ctrl != 0 {
		return ctrl, nil
	}
	if v.allocator == nil {
		return 0, fault.ErrTypeError
	}
	ctrl = v.allocator.Allocate(sparseSetCtrlSize, 0, v.offset)
	if ctrl == 0 {
		return 0, fault.ErrOutOfMemory
	}
	binary.LittleEndian.PutUint32(v.buf[ctrl+sparseOffCount:ctrl+sparseOffCount+4], 0)
	binary.LittleEndian.PutUint32(v.buf[ctrl+sparseOffDense:ctrl+sparseOffDense+4], 0)
	binary.LittleEndian.PutUint32(v.buf[ctrl+sparseOffSparse:ctrl+sparseOffSparse+4], 0)
	v.setControlPtr(p, ctrl)
	return ctrl, nil
}

// u32ArrayEnsure returns *arrayCtrlPtr, allocating a fresh u32
// dynamic-array control block (parented to owner) if it was 0.
func (v *View) u32ArrayEnsure(arrayCtrlPtr *uint32, owner uint32) error {
	if *arrayCtrlPtr != 0 {
		return nil
	}
	c := v.allocator.Allocate(arrayCtrlSize, 0, owner)
	if c == 0 {
		return fault.ErrOutOfMemory
	}
	binary.LittleEndian.PutUint32(v.buf[c+arrayOffLength:c+arrayOffLength+4], 0)
	binary.LittleEndian.PutUint32(v.buf[c+arrayOffCapacity:c+arrayOffCapacity+4], 0)
	v.setArrayElementsPtr(c, 0)
	*arrayCtrlPtr = c
	return nil
}

func (v *View) u32ArrayLen(ctrl uint32) uint32 {
	if ctrl == 0 {
		return 0
	}
	return binary.LittleEndian.Uint32(v.buf[ctrl+arrayOffLength : ctrl+arrayOffLength+4])
}

func (v *View) u32ArrayCap(ctrl uint32) uint32 {
	if ctrl == 0 {
		return 0
	}
	return binary.LittleEndian.Uint32(v.buf[ctrl+arrayOffCapacity : ctrl+arrayOffCapacity+4])
}

func (v *View) u32ArraySetLen(ctrl, length uint32) {
	binary.LittleEndian.PutUint32(v.buf[ctrl+arrayOffLength:ctrl+arrayOffLength+4], length)
}

func (v *View) u32ArrayGet(ctrl, i uint32) uint32 {
	elements := v.arrayElementsPtr(ctrl)
	off := elements + i*4
	return binary.LittleEndian.Uint32(v.buf[off : off+4])
}

func (v *View) u32ArraySet(ctrl, i, val uint32) {
	elements := v.arrayElementsPtr(ctrl)
	off := elements + i*4
	binary.LittleEndian.PutUint32(v.buf[off:off+4], val)
}

// u32ArrayGrow grows ctrl's backing storage to at least needCapacity
// elements, zero-filling any newly exposed slots beyond its current
// length.
func (v *View) u32ArrayGrow(ctrl, needCapacity uint32) error {
	capacity := v.u32ArrayCap(ctrl)
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
	newSize := newCapacity * 4

	var newElements uint32
	if oldElements != 0 {
		newElements = v.allocator.Reallocate(oldElements, newSize, 0, ctrl)
	} else {
		newElements = v.allocator.Allocate(newSize, 0, ctrl)
	}
	if newElements == 0 {
		return fault.ErrOutOfMemory
	}
	length := v.u32ArrayLen(ctrl)
	for i := length * 4; i < newSize; i++ {
		v.buf[newElements+i] = 0
	}
	v.setArrayElementsPtr(ctrl, newElements)
	binary.LittleEndian.PutUint32(v.buf[ctrl+arrayOffCapacity:ctrl+arrayOffCapacity+4], newCapacity)
	return nil
}

// SparseHas reports whether id is currently a member.
func (v *View) SparseHas(key string, id uint32) (bool, error) {
	_, ctrl, err := v.sparseCheck(key)
	if err != nil {
		return false, err
	}
	if ctrl == 0 {
		return false, nil
	}
	sparsePtr := binary.LittleEndian.Uint32(v.buf[ctrl+sparseOffSparse : ctrl+sparseOffSparse+4])
	densePtr := binary.LittleEndian.Uint32(v.buf[ctrl+sparseOffDense : ctrl+sparseOffDense+4])
	if sparsePtr == 0 || id >= v.u32ArrayCap(sparsePtr) {
		return false, nil
	}
	idx := v.u32ArrayGet(sparsePtr, id)
	return idx != sparseSentinel && idx < v.u32ArrayLen(densePtr) && v.u32ArrayGet(densePtr, idx) == id, nil
}

// SparseAdd inserts id, a no-op if already present.
func (v *View) SparseAdd(key string, id uint32) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindSparseSet {
		return fault.ErrTypeError
	}
	if v.allocator == nil {
		return fault.ErrTypeError
	}
	ctrl, err := v.ensureSparseSetCtrl(p)
	if err != nil {
		return err
	}
	if has, err := v.SparseHas(key, id); err != nil || has {
		return err
	}

	densePtr := binary.LittleEndian.Uint32(v.buf[ctrl+sparseOffDense : ctrl+sparseOffDense+4])
	sparsePtr := binary.LittleEndian.Uint32(v.buf[ctrl+sparseOffSparse : ctrl+sparseOffSparse+4])
	if err := v.u32ArrayEnsure(&densePtr, ctrl); err != nil {
		return err
	}
	if err := v.u32ArrayEnsure(&sparsePtr, ctrl); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(v.buf[ctrl+sparseOffDense:ctrl+sparseOffDense+4], densePtr)
	binary.LittleEndian.PutUint32(v.buf[ctrl+sparseOffSparse:ctrl+sparseOffSparse+4], sparsePtr)

	if id >= v.u32ArrayCap(sparsePtr) {
		oldCap := v.u32ArrayCap(sparsePtr)
		if err := v.u32ArrayGrow(sparsePtr, id+1); err != nil {
			return err
		}
		for i := oldCap; i < v.u32ArrayCap(sparsePtr); i++ {
			v.u32ArraySet(sparsePtr, i, sparseSentinel)
		}
		v.u32ArraySetLen(sparsePtr, v.u32ArrayCap(sparsePtr))
	}

	denseLen := v.u32ArrayLen(densePtr)
	if err := v.u32ArrayGrow(densePtr, denseLen+1); err != nil {
		return err
	}
	v.u32ArraySet(densePtr, denseLen, id)
	v.u32ArraySetLen(densePtr, denseLen+1)
	v.u32ArraySet(sparsePtr, id, denseLen)

	count := binary.LittleEndian.Uint32(v.buf[ctrl+sparseOffCount : ctrl+sparseOffCount+4])
	binary.LittleEndian.PutUint32(v.buf[ctrl+sparseOffCount:ctrl+sparseOffCount+4], count+1)
	return nil
}

// SparseRemove removes id via swap-with-last, reporting whether it was
// present.
func (v *View) SparseRemove(key string, id uint32) (bool, error) {
	_, ctrl, err := v.sparseCheck(key)
	if err != nil {
		return false, err
	}
	if ctrl == 0 {
		return false, nil
	}
	has, err := v.SparseHas(key, id)
	if err != nil || !has {
		return false, err
	}

	densePtr := binary.LittleEndian.Uint32(v.buf[ctrl+sparseOffDense : ctrl+sparseOffDense+4])
	sparsePtr := binary.LittleEndian.Uint32(v.buf[ctrl+sparseOffSparse : ctrl+sparseOffSparse+4])

	idx := v.u32ArrayGet(sparsePtr, id)
	denseLen := v.u32ArrayLen(densePtr)
	last := v.u32ArrayGet(densePtr, denseLen-1)

	v.u32ArraySet(densePtr, idx, last)
	v.u32ArraySet(sparsePtr, last, idx)
	v.u32ArraySetLen(densePtr, denseLen-1)

	count := binary.LittleEndian.Uint32(v.buf[ctrl+sparseOffCount : ctrl+sparseOffCount+4])
	binary.LittleEndian.PutUint32(v.buf[ctrl+sparseOffCount:ctrl+sparseOffCount+4], count-1)
	return true, nil
}

// SparseIterate visits every live id in dense-array order.
func (v *View) SparseIterate(key string, fn func(id uint32)) error {
	_, ctrl, err := v.sparseCheck(key)
	if err != nil {
		return err
	}
	if ctrl == 0 {
		return nil
	}
	densePtr := binary.LittleEndian.Uint32(v.buf[ctrl+sparseOffDense : ctrl+sparseOffDense+4])
	if densePtr == 0 {
		return nil
	}
	n := v.u32ArrayLen(densePtr)
	for i := uint32(0); i < n; i++ {
		fn(v.u32ArrayGet(densePtr, i))
	}
	return nil
}

// SparseClear resets count to 0 and frees both backing arrays.
func (v *View) SparseClear(key string) error {
	_, ctrl, err := v.sparseCheck(key)
	if err != nil {
		return err
	}
	if ctrl == 0 {
		return nil
	}
	densePtr := binary.LittleEndian.Uint32(v.buf[ctrl+sparseOffDense : ctrl+sparseOffDense+4])
	sparsePtr := binary.LittleEndian.Uint32(v.buf[ctrl+sparseOffSparse : ctrl+sparseOffSparse+4])
	for _, arrCtrl := range []uint32{densePtr, sparsePtr} {
		if arrCtrl == 0 {
			continue
		}
		if elements := v.arrayElementsPtr(arrCtrl); elements != 0 {
			if err := v.allocator.Free(elements); err != nil {
				return err
			}
		}
		if err := v.allocator.Free(arrCtrl); err != nil {
			return err
		}
	}
	binary.LittleEndian.PutUint32(v.buf[ctrl+sparseOffDense:ctrl+sparseOffDense+4], 0)
	binary.LittleEndian.PutUint32(v.buf[ctrl+sparseOffSparse:ctrl+sparseOffSparse+4], 0)
	binary.LittleEndian.PutUint32(v.buf[ctrl+sparseOffCount:ctrl+sparseOffCount+4], 0)
	return nil
}

func (v *View) freeSparseSetField(p *schema.PropertyLayout) error {
	ctrl := v.controlPtr(p)
	if ctrl == 0 {
		return nil
	}
	densePtr := binary.LittleEndian.Uint32(v.buf[ctrl+sparseOffDense : ctrl+sparseOffDense+4])
	sparsePtr := binary.LittleEndian.Uint32(v.buf[ctrl+sparseOffSparse : ctrl+sparseOffSparse+4])
	for _, arrCtrl := range []uint32{densePtr, sparsePtr} {
		if arrCtrl == 0 {
			continue
		}
		if elements := v.arrayElementsPtr(arrCtrl); elements != 0 {
			if err := v.allocator.Free(elements); err != nil {
				return err
			}
		}
		if err := v.allocator.Free(arrCtrl); err != nil {
			return err
		}
	}
	if err := v.allocator.Free(ctrl); err != nil {
		return err
	}
	v.setControlPtr(p, 0)
	return nil
}
