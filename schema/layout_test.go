package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrimitiveOffsetsAndAlignment(t *testing.T) {
	l := Build("Point", []FieldSpec{
		{PropertyKey: "flag", Info: BinaryInfo{Kind: KindPrimitive, Primitive: U8}},
		{PropertyKey: "x", Info: BinaryInfo{Kind: KindPrimitive, Primitive: U32}},
		{PropertyKey: "y", Info: BinaryInfo{Kind: KindPrimitive, Primitive: U32}},
	})

	flag := l.FindProperty("flag")
	x := l.FindProperty("x")
	y := l.FindProperty("y")
	require.NotNil(t, flag)
	require.NotNil(t, x)
	require.NotNil(t, y)

	assert.Equal(t, uint32(0), flag.Offset)
	assert.Equal(t, uint32(4), x.Offset, "x aligns up to its own 4-byte alignment")
	assert.Equal(t, uint32(8), y.Offset)
	assert.Equal(t, uint32(4), l.Alignment)
	assert.Equal(t, uint32(12), l.TotalSize)
}

func TestBuildPacksBitFieldsIntoOneContainer(t *testing.T) {
	l := Build("Flags", []FieldSpec{
		{PropertyKey: "a", Info: BinaryInfo{Kind: KindBitField, Primitive: U32}, BitWidth: 1},
		{PropertyKey: "b", Info: BinaryInfo{Kind: KindBitField, Primitive: U32}, BitWidth: 7},
		{PropertyKey: "c", Info: BinaryInfo{Kind: KindPrimitive, Primitive: U32}},
	})

	a := l.FindProperty("a")
	b := l.FindProperty("b")
	c := l.FindProperty("c")

	assert.Equal(t, uint32(0), a.Offset)
	assert.Equal(t, uint32(0), a.BitOffset)
	assert.Equal(t, uint32(0), b.Offset, "b packs into the same container as a")
	assert.Equal(t, uint32(1), b.BitOffset)
	assert.Equal(t, uint32(4), c.Offset, "c starts a new container-aligned slot after the bit-field run")
}

func TestBuildStartsNewContainerOnOverflow(t *testing.T) {
	l := Build("Wide", []FieldSpec{
		{PropertyKey: "a", Info: BinaryInfo{Kind: KindBitField}, BitWidth: 20},
		{PropertyKey: "b", Info: BinaryInfo{Kind: KindBitField}, BitWidth: 20}, // doesn't fit in remaining 12 bits
	})

	a := l.FindProperty("a")
	b := l.FindProperty("b")
	assert.Equal(t, uint32(0), a.Offset)
	assert.Equal(t, uint32(4), b.Offset, "b overflows a's container and starts its own")
	assert.Equal(t, uint32(0), b.BitOffset)
}

func TestBuildNestedStructUsesChildLayout(t *testing.T) {
	inner := Build("Inner", []FieldSpec{
		{PropertyKey: "id", Info: BinaryInfo{Kind: KindPrimitive, Primitive: U32}},
	})

	outer := Build("Outer", []FieldSpec{
		{PropertyKey: "tag", Info: BinaryInfo{Kind: KindPrimitive, Primitive: U8}},
		{PropertyKey: "child", Info: BinaryInfo{Kind: KindNestedStruct, NestedSchema: inner}},
	})

	child := outer.FindProperty("child")
	require.NotNil(t, child)
	assert.Equal(t, inner.TotalSize, child.Size)
	assert.Equal(t, inner.Alignment, child.Alignment)
}

func TestBuildFixedArrayMultipliesElementSize(t *testing.T) {
	l := Build("Arr", []FieldSpec{
		{
			PropertyKey: "slots",
			Info: BinaryInfo{
				Kind:         KindFixedArray,
				ElementCount: 4,
				ElementInfo:  &BinaryInfo{Kind: KindPrimitive, Primitive: U16},
			},
		},
	})
	slots := l.FindProperty("slots")
	assert.Equal(t, uint32(8), slots.Size)
	assert.Equal(t, uint32(2), slots.Alignment)
}

func TestBuildDynamicFieldMarksHasDynamicData(t *testing.T) {
	l := Build("Named", []FieldSpec{
		{PropertyKey: "label", Info: BinaryInfo{Kind: KindDynamicString}},
	})
	assert.True(t, l.HasDynamicData)
	label := l.FindProperty("label")
	assert.Equal(t, uint32(4), label.Size)
}

func TestBuildTaggedUnionSizesToLargestVariant(t *testing.T) {
	l := Build("Choice", []FieldSpec{
		{
			PropertyKey: "value",
			Info: BinaryInfo{
				Kind: KindTaggedUnion,
				Variants: []Variant{
					{Tag: 1, Name: "small", Info: &BinaryInfo{Kind: KindPrimitive, Primitive: U8}},
					{Tag: 2, Name: "big", Info: &BinaryInfo{Kind: KindPrimitive, Primitive: U64}},
				},
			},
		},
	})
	value := l.FindProperty("value")
	// tag(1) padded to 8-byte alignment, then the 8-byte variant.
	assert.Equal(t, uint32(16), value.Size)
	assert.Equal(t, uint32(8), value.Alignment)
}
