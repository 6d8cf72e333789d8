// Package schema describes the layout of a record type — field offsets,
// alignments, and binary kinds — the way nmxmxh-inos_v1/kernel/threads'
// many iota-enum "discriminated record" types (pattern/types.go,
// foundation/types.go) describe message shapes: one Kind enum plus the
// handful of payload fields that kind actually uses.
package schema

// PrimitiveKind enumerates the fixed-width scalar types a field may hold.
type PrimitiveKind int

const (
	U8 PrimitiveKind = iota
	I8
	U16
	I16
	U32
	I32
	U64
	I64
	F32
	F64
	Bool
)

// String returns the primitive's type name, as used by the inspector.
func (k PrimitiveKind) String() string {
	switch k {
	case U8:
		return "u8"
	case I8:
		return "i8"
	case U16:
		return "u16"
	case I16:
		return "i16"
	case U32:
		return "u32"
	case I32:
		return "i32"
	case U64:
		return "u64"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Size returns the primitive's on-disk width in bytes.
func (k PrimitiveKind) Size() uint32 {
	switch k {
	case U8, I8, Bool:
		return 1
	case U16, I16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64:
		return 8
	default:
		return 0
	}
}

// Kind discriminates a PropertyLayout's binary_info. The
// source's shape uses independent boolean selectors (is_nested_struct,
// is_dynamic, is_union, ...); this collapses them into one tag, which is
// the idiomatic Go rendering of a discriminated union and loses nothing
// — every field the booleans gated is still present on BinaryInfo.
type Kind int

const (
	KindPrimitive Kind = iota
	KindBitField
	KindEnum
	KindFixedArray
	KindNestedStruct
	KindTuple
	KindOptional
	KindPtr
	KindDynamicString
	KindDynamicArray
	KindHashmap
	KindSet
	KindSparseSet
	KindTaggedUnion
)

// String returns the kind's type name, as used by the inspector.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindBitField:
		return "bitfield"
	case KindEnum:
		return "enum"
	case KindFixedArray:
		return "fixed_array"
	case KindNestedStruct:
		return "struct"
	case KindTuple:
		return "tuple"
	case KindOptional:
		return "optional"
	case KindPtr:
		return "ptr"
	case KindDynamicString:
		return "string"
	case KindDynamicArray:
		return "array"
	case KindHashmap:
		return "hashmap"
	case KindSet:
		return "set"
	case KindSparseSet:
		return "sparse_set"
	case KindTaggedUnion:
		return "union"
	default:
		return "unknown"
	}
}

// EnumMember is one named value of an enum kind.
type EnumMember struct {
	Name  string
	Value uint64
}

// Variant is one arm of a tagged union, keyed by its 1-based tag (0 is
// reserved for "none").
type Variant struct {
	Tag   uint8
	Name  string
	Info  *BinaryInfo
}

// BinaryInfo is the discriminated description of one field's binary
// representation.
type BinaryInfo struct {
	Kind Kind

	// KindPrimitive / KindBitField / KindEnum (underlying storage)
	Primitive PrimitiveKind

	// KindFixedArray element type; also doubles as the element/value type
	// descriptor for KindDynamicArray, KindSet and KindHashmap (value).
	ElementCount int
	ElementInfo  *BinaryInfo

	// KindNestedStruct / KindTuple
	NestedSchema *Layout

	// KindHashmap key
	KeyType   PrimitiveKind
	KeySchema *Layout

	// KindTaggedUnion
	Variants []Variant

	// KindEnum
	EnumMembers  []EnumMember
	EnumBaseType PrimitiveKind
}

// PropertyLayout describes one field of a record.
type PropertyLayout struct {
	PropertyKey  string
	Offset       uint32
	Size         uint32
	Alignment    uint32
	HasBitField  bool
	BitOffset    uint32
	BitWidth     uint32
	DefaultValue any
	Info         BinaryInfo
}

// Layout describes one record type's on-disk shape.
type Layout struct {
	Name            string
	TotalSize       uint32
	Alignment       uint32
	HasDynamicData  bool
	Properties      []PropertyLayout
}

// FindProperty returns the property named key, or nil.
func (l *Layout) FindProperty(key string) *PropertyLayout {
	for i := range l.Properties {
		if l.Properties[i].PropertyKey == key {
			return &l.Properties[i]
		}
	}
	return nil
}
