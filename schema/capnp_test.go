package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalLayoutRoundTrip(t *testing.T) {
	l := Build("Widget", []FieldSpec{
		{PropertyKey: "id", Info: BinaryInfo{Kind: KindPrimitive, Primitive: U32}},
		{PropertyKey: "label", Info: BinaryInfo{Kind: KindDynamicString}},
	})

	data, err := MarshalLayout(l)
	require.NoError(t, err)

	name, totalSize, alignment, names, err := UnmarshalLayoutNames(data)
	require.NoError(t, err)

	assert.Equal(t, "Widget", name)
	assert.Equal(t, l.TotalSize, totalSize)
	assert.Equal(t, l.Alignment, alignment)
	assert.Equal(t, []string{"id", "label"}, names)
}
