// Package view implements schema-driven record accessors over a TLSF
// buffer: a thin, cheap handle (buffer, offset, allocator, schema) with
// one read/write pair per binary kind, the same plain-handle-plus-schema
// shape, a plain-handle-plus-schema design. It follows the
// teacher's small-struct-plus-methods style
// (nmxmxh-inos_v1/kernel/threads/sab/epoch_allocator.go wraps a byte
// buffer the same way) rather than introducing an accessor-generation
// step.
package view

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/nmxmxh/guerrero/internal/fault"
	"github.com/nmxmxh/guerrero/schema"
	"github.com/nmxmxh/guerrero/tlsf"
)

// View is a handle over one record instance: schema.Layout interpreted
// starting at offset inside buf. It does not own buf; Free releases the
// allocation at offset (and everything it transitively owns) through
// allocator.
type View struct {
	buf       []byte
	offset    uint32
	allocator *tlsf.Allocator
	schema    *schema.Layout
}

// New returns a View over the record described by sch, starting at
// offset inside buf. alloc may be nil for a read-only view: reads of
// dynamic fields still decode from buf, while operations that must
// allocate (SetString, array pushes, map/set inserts, SparseAdd) and
// Free return an error.
func New(buf []byte, offset uint32, alloc *tlsf.Allocator, sch *schema.Layout) *View {
	return &View{buf: buf, offset: offset, allocator: alloc, schema: sch}
}

// Offset returns the view's user pointer (its own record's start).
func (v *View) Offset() uint32 { return v.offset }

// Schema returns the layout this view interprets.
func (v *View) Schema() *schema.Layout { return v.schema }

// Allocator returns the view's allocator, or nil for a read-only view.
func (v *View) Allocator() *tlsf.Allocator { return v.allocator }

// RawBuffer returns the view's backing byte slice, for callers (the
// inspector) that need to read raw offsets the typed accessors don't
// cover directly.
func (v *View) RawBuffer() []byte { return v.buf }

func (v *View) prop(key string) (*schema.PropertyLayout, error) {
	p := v.schema.FindProperty(key)
	if p == nil {
		return nil, fmt.Errorf("guerrero: unknown property %q on %s: %w", key, v.schema.Name, fault.ErrSchemaResolution)
	}
	return p, nil
}

func (v *View) fieldOffset(p *schema.PropertyLayout) uint32 {
	return v.offset + p.Offset
}

// FieldOffset returns the absolute buffer offset of key, for callers
// (the inspector) that need to read a field's raw bytes directly.
func (v *View) FieldOffset(key string) (uint32, error) {
	p, err := v.prop(key)
	if err != nil {
		return 0, err
	}
	return v.fieldOffset(p), nil
}

func maxUintForSize(size uint32) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (size * 8)) - 1
}

func readUint(buf []byte, off uint32, k schema.PrimitiveKind) uint64 {
	switch k {
	case schema.U8, schema.Bool:
		return uint64(buf[off])
	case schema.U16:
		return uint64(binary.LittleEndian.Uint16(buf[off : off+2]))
	case schema.U32:
		return uint64(binary.LittleEndian.Uint32(buf[off : off+4]))
	case schema.U64:
		return binary.LittleEndian.Uint64(buf[off : off+8])
	default:
		return 0
	}
}

func writeUint(buf []byte, off uint32, k schema.PrimitiveKind, val uint64) {
	switch k {
	case schema.U8, schema.Bool:
		buf[off] = byte(val)
	case schema.U16:
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(val))
	case schema.U32:
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(val))
	case schema.U64:
		binary.LittleEndian.PutUint64(buf[off:off+8], val)
	}
}

func readInt(buf []byte, off uint32, k schema.PrimitiveKind) int64 {
	switch k {
	case schema.I8:
		return int64(int8(buf[off]))
	case schema.I16:
		return int64(int16(binary.LittleEndian.Uint16(buf[off : off+2])))
	case schema.I32:
		return int64(int32(binary.LittleEndian.Uint32(buf[off : off+4])))
	case schema.I64:
		return int64(binary.LittleEndian.Uint64(buf[off : off+8]))
	default:
		return 0
	}
}

func writeInt(buf []byte, off uint32, k schema.PrimitiveKind, val int64) {
	switch k {
	case schema.I8:
		buf[off] = byte(int8(val))
	case schema.I16:
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(int16(val)))
	case schema.I32:
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(int32(val)))
	case schema.I64:
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(val))
	}
}

func intRange(k schema.PrimitiveKind) (min, max int64) {
	switch k {
	case schema.I8:
		return -128, 127
	case schema.I16:
		return -32768, 32767
	case schema.I32:
		return -2147483648, 2147483647
	case schema.I64:
		return -1 << 63, 1<<63 - 1
	default:
		return 0, 0
	}
}

// GetUint reads an unsigned primitive field (u8/u16/u32/u64/bool).
func (v *View) GetUint(key string) (uint64, error) {
	p, err := v.prop(key)
	if err != nil {
		return 0, err
	}
	if p.Info.Kind != schema.KindPrimitive {
		return 0, fault.ErrTypeError
	}
	return readUint(v.buf, v.fieldOffset(p), p.Info.Primitive), nil
}

// SetUint writes an unsigned primitive field, range-checked against its
// declared width. Out-of-range writes leave the field untouched.
func (v *View) SetUint(key string, val uint64) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindPrimitive {
		return fault.ErrTypeError
	}
	switch p.Info.Primitive {
	case schema.U8, schema.U16, schema.U32, schema.U64:
		if val > maxUintForSize(p.Info.Primitive.Size()) {
			return fault.ErrRangeError
		}
		writeUint(v.buf, v.fieldOffset(p), p.Info.Primitive, val)
		return nil
	default:
		return fault.ErrTypeError
	}
}

// GetInt reads a signed primitive field.
func (v *View) GetInt(key string) (int64, error) {
	p, err := v.prop(key)
	if err != nil {
		return 0, err
	}
	if p.Info.Kind != schema.KindPrimitive {
		return 0, fault.ErrTypeError
	}
	return readInt(v.buf, v.fieldOffset(p), p.Info.Primitive), nil
}

// SetInt writes a signed primitive field, range-checked.
func (v *View) SetInt(key string, val int64) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindPrimitive {
		return fault.ErrTypeError
	}
	min, max := intRange(p.Info.Primitive)
	if min == 0 && max == 0 {
		return fault.ErrTypeError
	}
	if val < min || val > max {
		return fault.ErrRangeError
	}
	writeInt(v.buf, v.fieldOffset(p), p.Info.Primitive, val)
	return nil
}

// GetFloat32 reads an f32 field.
func (v *View) GetFloat32(key string) (float32, error) {
	p, err := v.prop(key)
	if err != nil {
		return 0, err
	}
	if p.Info.Kind != schema.KindPrimitive || p.Info.Primitive != schema.F32 {
		return 0, fault.ErrTypeError
	}
	off := v.fieldOffset(p)
	bits := binary.LittleEndian.Uint32(v.buf[off : off+4])
	return math.Float32frombits(bits), nil
}

// SetFloat32 writes an f32 field.
func (v *View) SetFloat32(key string, val float32) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindPrimitive || p.Info.Primitive != schema.F32 {
		return fault.ErrTypeError
	}
	off := v.fieldOffset(p)
	binary.LittleEndian.PutUint32(v.buf[off:off+4], math.Float32bits(val))
	return nil
}

// GetFloat64 reads an f64 field.
func (v *View) GetFloat64(key string) (float64, error) {
	p, err := v.prop(key)
	if err != nil {
		return 0, err
	}
	if p.Info.Kind != schema.KindPrimitive || p.Info.Primitive != schema.F64 {
		return 0, fault.ErrTypeError
	}
	off := v.fieldOffset(p)
	bits := binary.LittleEndian.Uint64(v.buf[off : off+8])
	return math.Float64frombits(bits), nil
}

// SetFloat64 writes an f64 field.
func (v *View) SetFloat64(key string, val float64) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindPrimitive || p.Info.Primitive != schema.F64 {
		return fault.ErrTypeError
	}
	off := v.fieldOffset(p)
	binary.LittleEndian.PutUint64(v.buf[off:off+8], math.Float64bits(val))
	return nil
}

// GetBool reads a bool field.
func (v *View) GetBool(key string) (bool, error) {
	p, err := v.prop(key)
	if err != nil {
		return false, err
	}
	if p.Info.Kind != schema.KindPrimitive || p.Info.Primitive != schema.Bool {
		return false, fault.ErrTypeError
	}
	return v.buf[v.fieldOffset(p)] != 0, nil
}

// SetBool writes a bool field.
func (v *View) SetBool(key string, val bool) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindPrimitive || p.Info.Primitive != schema.Bool {
		return fault.ErrTypeError
	}
	b := byte(0)
	if val {
		b = 1
	}
	v.buf[v.fieldOffset(p)] = b
	return nil
}

// GetBitField reads a packed bit-field's value out of its 32-bit
// container.
func (v *View) GetBitField(key string) (uint64, error) {
	p, err := v.prop(key)
	if err != nil {
		return 0, err
	}
	if !p.HasBitField {
		return 0, fault.ErrTypeError
	}
	off := v.fieldOffset(p)
	container := binary.LittleEndian.Uint32(v.buf[off : off+4])
	mask := uint32((uint64(1) << p.BitWidth) - 1)
	return uint64((container >> p.BitOffset) & mask), nil
}

// SetBitField writes a packed bit-field's value, leaving its sibling
// bits inside the same container untouched. Values outside
// [0, 2^bit_width) are rejected.
func (v *View) SetBitField(key string, val uint64) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if !p.HasBitField {
		return fault.ErrTypeError
	}
	maxVal := (uint64(1) << p.BitWidth) - 1
	if val > maxVal {
		return fault.ErrRangeError
	}
	off := v.fieldOffset(p)
	container := binary.LittleEndian.Uint32(v.buf[off : off+4])
	mask := uint32(maxVal) << p.BitOffset
	container = (container &^ mask) | (uint32(val) << p.BitOffset)
	binary.LittleEndian.PutUint32(v.buf[off:off+4], container)
	return nil
}

// GetEnum reads an enum field and resolves it to its declared member.
func (v *View) GetEnum(key string) (schema.EnumMember, error) {
	p, err := v.prop(key)
	if err != nil {
		return schema.EnumMember{}, err
	}
	if p.Info.Kind != schema.KindEnum {
		return schema.EnumMember{}, fault.ErrTypeError
	}
	raw := readUint(v.buf, v.fieldOffset(p), p.Info.EnumBaseType)
	for _, m := range p.Info.EnumMembers {
		if m.Value == raw {
			return m, nil
		}
	}
	return schema.EnumMember{}, fault.ErrTypeError
}

// SetEnum writes an enum field; val must match a declared member.
func (v *View) SetEnum(key string, val uint64) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindEnum {
		return fault.ErrTypeError
	}
	found := false
	for _, m := range p.Info.EnumMembers {
		if m.Value == val {
			found = true
			break
		}
	}
	if !found {
		return fault.ErrRangeError
	}
	writeUint(v.buf, v.fieldOffset(p), p.Info.EnumBaseType, val)
	return nil
}

// Nested returns a view over a nested-struct or tuple field, sharing
// this view's buffer and allocator.
func (v *View) Nested(key string) (*View, error) {
	p, err := v.prop(key)
	if err != nil {
		return nil, err
	}
	if p.Info.Kind != schema.KindNestedStruct && p.Info.Kind != schema.KindTuple {
		return nil, fault.ErrTypeError
	}
	if p.Info.NestedSchema == nil {
		return nil, fault.ErrSchemaResolution
	}
	return New(v.buf, v.fieldOffset(p), v.allocator, p.Info.NestedSchema), nil
}

// FixedArrayElementOffset returns the absolute buffer offset of element
// i of a fixed-array field, for primitive/POD elements the caller reads
// or writes directly with the schema.PrimitiveKind helpers.
func (v *View) FixedArrayElementOffset(key string, i int) (uint32, error) {
	p, err := v.prop(key)
	if err != nil {
		return 0, err
	}
	if p.Info.Kind != schema.KindFixedArray {
		return 0, fault.ErrTypeError
	}
	if i < 0 || i >= p.Info.ElementCount {
		return 0, fault.ErrRangeError
	}
	elemSize, _ := schema.SizeAndAlignOf(p.Info.ElementInfo)
	return v.fieldOffset(p) + uint32(i)*elemSize, nil
}

// FixedArrayElement returns a View over element i of a fixed array whose
// element kind is itself a record (nested struct or tuple).
func (v *View) FixedArrayElement(key string, i int) (*View, error) {
	p, err := v.prop(key)
	if err != nil {
		return nil, err
	}
	if p.Info.Kind != schema.KindFixedArray {
		return nil, fault.ErrTypeError
	}
	elemInfo := p.Info.ElementInfo
	if elemInfo == nil || elemInfo.NestedSchema == nil {
		return nil, fault.ErrTypeError
	}
	off, err := v.FixedArrayElementOffset(key, i)
	if err != nil {
		return nil, err
	}
	return New(v.buf, off, v.allocator, elemInfo.NestedSchema), nil
}

// ReadPrimitiveAt decodes a primitive value at an absolute buffer
// offset — used together with FixedArrayElementOffset for fixed arrays
// of scalars.
func ReadPrimitiveAt(buf []byte, off uint32, k schema.PrimitiveKind) uint64 {
	return readUint(buf, off, k)
}

// WritePrimitiveAt encodes a primitive value at an absolute buffer
// offset.
func WritePrimitiveAt(buf []byte, off uint32, k schema.PrimitiveKind, val uint64) {
	writeUint(buf, off, k, val)
}

func (v *View) controlPtr(p *schema.PropertyLayout) uint32 {
	off := v.fieldOffset(p)
	return binary.LittleEndian.Uint32(v.buf[off : off+4])
}

func (v *View) setControlPtr(p *schema.PropertyLayout, ptr uint32) {
	off := v.fieldOffset(p)
	binary.LittleEndian.PutUint32(v.buf[off:off+4], ptr)
}

// Free releases every dynamic field this record directly owns, then
// recurses into nested-struct fields and fixed-array record elements,
// then frees the record's own backing allocation: a view's free()
// deallocates the backing allocation and all transitively reachable
// dynamic children.
func (v *View) Free() error {
	if v.allocator == nil {
		return fmt.Errorf("guerrero: view has no allocator")
	}
	for i := range v.schema.Properties {
		p := &v.schema.Properties[i]
		if err := v.freeProperty(p); err != nil {
			return err
		}
	}
	return v.allocator.Free(v.offset)
}

func (v *View) freeProperty(p *schema.PropertyLayout) error {
	switch p.Info.Kind {
	case schema.KindDynamicString:
		return v.FreeString(p.PropertyKey)
	case schema.KindDynamicArray:
		return v.freeDynamicArrayField(p)
	case schema.KindHashmap, schema.KindSet:
		return v.freeMapField(p)
	case schema.KindSparseSet:
		return v.freeSparseSetField(p)
	case schema.KindTaggedUnion:
		return v.freeUnionField(p)
	case schema.KindNestedStruct, schema.KindTuple:
		nested, err := v.Nested(p.PropertyKey)
		if err != nil {
			return err
		}
		for i := range nested.schema.Properties {
			if err := nested.freeProperty(&nested.schema.Properties[i]); err != nil {
				return err
			}
		}
		return nil
	case schema.KindFixedArray:
		if p.Info.ElementInfo != nil && p.Info.ElementInfo.NestedSchema != nil {
			for i := 0; i < p.Info.ElementCount; i++ {
				elem, err := v.FixedArrayElement(p.PropertyKey, i)
				if err != nil {
					return err
				}
				for j := range elem.schema.Properties {
					if err := elem.freeProperty(&elem.schema.Properties[j]); err != nil {
						return err
					}
				}
			}
		}
		return nil
	default:
		return nil
	}
}

