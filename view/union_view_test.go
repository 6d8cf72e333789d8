package view

import (
	"testing"

	"github.com/nmxmxh/guerrero/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unionSchema() *schema.Layout {
	textSchema := schema.Build("TextVariant", []schema.FieldSpec{
		{PropertyKey: "body", Info: schema.BinaryInfo{Kind: schema.KindDynamicString}},
	})
	return schema.Build("Event", []schema.FieldSpec{
		{PropertyKey: "payload", Info: schema.BinaryInfo{
			Kind: schema.KindTaggedUnion,
			Variants: []schema.Variant{
				{Tag: 1, Name: "amount", Info: &schema.BinaryInfo{Kind: schema.KindPrimitive, Primitive: schema.U32}},
				{Tag: 2, Name: "text", Info: &schema.BinaryInfo{Kind: schema.KindNestedStruct, NestedSchema: textSchema}},
			},
		}},
	})
}

func TestUnionDefaultsToNoVariant(t *testing.T) {
	v, _, _ := newHarness(t, 4096, unionSchema())
	tag, err := v.UnionTag("payload")
	require.NoError(t, err)
	assert.EqualValues(t, 0, tag)

	variant, err := v.UnionVariant("payload")
	require.NoError(t, err)
	assert.Nil(t, variant)
}

func TestUnionSelectPrimitiveVariant(t *testing.T) {
	v, _, _ := newHarness(t, 4096, unionSchema())
	require.NoError(t, v.UnionSelect("payload", 1))

	tag, err := v.UnionTag("payload")
	require.NoError(t, err)
	assert.EqualValues(t, 1, tag)

	off, err := v.UnionPayloadOffset("payload")
	require.NoError(t, err)
	WritePrimitiveAt(v.buf, off, schema.U32, 42)
	assert.EqualValues(t, 42, ReadPrimitiveAt(v.buf, off, schema.U32))
}

func TestUnionSelectRecordVariant(t *testing.T) {
	v, _, _ := newHarness(t, 4096, unionSchema())
	require.NoError(t, v.UnionSelect("payload", 2))

	payload, err := v.UnionPayloadView("payload")
	require.NoError(t, err)
	require.NoError(t, payload.SetString("body", "hello world"))

	body, err := payload.String("body")
	require.NoError(t, err)
	assert.Equal(t, "hello world", body)
}

func TestUnionSwitchingVariantFreesPreviousVariantsChildren(t *testing.T) {
	v, _, reg := newHarness(t, 4096, unionSchema())
	require.NoError(t, v.UnionSelect("payload", 2))
	payload, err := v.UnionPayloadView("payload")
	require.NoError(t, err)
	require.NoError(t, payload.SetString("body", "leaked if not freed"))
	before := reg.Len()
	require.Greater(t, before, 0)

	require.NoError(t, v.UnionSelect("payload", 1))
	assert.Less(t, reg.Len(), before)
}

func TestUnionRejectsUnknownTag(t *testing.T) {
	v, _, _ := newHarness(t, 4096, unionSchema())
	assert.Error(t, v.UnionSelect("payload", 9))
}
