package schema

// FieldSpec is the declaration-order input to Build: everything about a
// field that is known before its offset is assigned.
type FieldSpec struct {
	PropertyKey  string
	Info         BinaryInfo
	BitWidth     uint32 // > 0 marks this field as a packed bit-field
	DefaultValue any
}

const bitContainerSize = 4
const bitContainerBits = 32

// Build lays out fields in declaration order: each field's offset is
// aligned to the field's own alignment, a running offset tracks the next
// free byte, and the record's total size is aligned up to its own
// alignment. Bit-fields are packed into a 4-byte
// container until a non-packable field, or one that would overflow the
// container's 32 bits, starts a new one.
func Build(name string, fields []FieldSpec) *Layout {
	l := &Layout{Name: name}

	var offset uint32
	var maxAlign uint32 = 1

	var containerOffset uint32
	var containerBitsUsed uint32
	containerOpen := false

	for _, f := range fields {
		if f.BitWidth > 0 {
			if !containerOpen || containerBitsUsed+f.BitWidth > bitContainerBits {
				offset = alignUp(offset, bitContainerSize)
				containerOffset = offset
				containerBitsUsed = 0
				containerOpen = true
				offset += bitContainerSize
				if bitContainerSize > maxAlign {
					maxAlign = bitContainerSize
				}
			}
			prop := PropertyLayout{
				PropertyKey: f.PropertyKey,
				Offset:      containerOffset,
				Size:        bitContainerSize,
				Alignment:   bitContainerSize,
				HasBitField: true,
				BitOffset:   containerBitsUsed,
				BitWidth:    f.BitWidth,
				DefaultValue: f.DefaultValue,
				Info:        f.Info,
			}
			containerBitsUsed += f.BitWidth
			l.Properties = append(l.Properties, prop)
			continue
		}

		containerOpen = false

		size, align := sizeAndAlignOf(&f.Info)
		if align == 0 {
			align = 1
		}
		fieldOffset := alignUp(offset, align)

		prop := PropertyLayout{
			PropertyKey:  f.PropertyKey,
			Offset:       fieldOffset,
			Size:         size,
			Alignment:    align,
			DefaultValue: f.DefaultValue,
			Info:         f.Info,
		}
		l.Properties = append(l.Properties, prop)

		offset = fieldOffset + size
		if align > maxAlign {
			maxAlign = align
		}
		if isDynamicKind(f.Info.Kind) {
			l.HasDynamicData = true
		}
	}

	l.Alignment = maxAlign
	l.TotalSize = alignUp(offset, maxAlign)
	return l
}

func isDynamicKind(k Kind) bool {
	switch k {
	case KindDynamicString, KindDynamicArray, KindHashmap, KindSet, KindSparseSet:
		return true
	default:
		return false
	}
}

// SizeAndAlignOf exposes sizeAndAlignOf for callers outside the package
// (the view runtime needs it to locate fixed-array elements).
func SizeAndAlignOf(info *BinaryInfo) (size, align uint32) {
	return sizeAndAlignOf(info)
}

// sizeAndAlignOf computes a field's on-disk size and alignment from its
// binary kind. Dynamic containers and raw pointers are a single u32
// control pointer in the parent's field slot.
func sizeAndAlignOf(info *BinaryInfo) (size, align uint32) {
	switch info.Kind {
	case KindPrimitive:
		s := info.Primitive.Size()
		return s, s

	case KindEnum:
		base := info.EnumBaseType
		s := base.Size()
		if s == 0 {
			s = 1
		}
		return s, s

	case KindFixedArray:
		elemSize, elemAlign := sizeAndAlignOf(info.ElementInfo)
		return uint32(info.ElementCount) * elemSize, elemAlign

	case KindNestedStruct, KindTuple:
		return info.NestedSchema.TotalSize, info.NestedSchema.Alignment

	case KindDynamicString, KindDynamicArray, KindHashmap, KindSet, KindSparseSet, KindPtr:
		return 4, 4

	case KindTaggedUnion:
		var maxVariant, maxAlign uint32 = 0, 1
		for _, v := range info.Variants {
			vs, va := sizeAndAlignOf(v.Info)
			if vs > maxVariant {
				maxVariant = vs
			}
			if va > maxAlign {
				maxAlign = va
			}
		}
		payloadOffset := alignUp(1, maxAlign)
		return payloadOffset + maxVariant, maxAlign

	case KindOptional:
		return sizeAndAlignOf(info.ElementInfo)

	default:
		return 4, 4
	}
}

func alignUp(v, align uint32) uint32 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}
