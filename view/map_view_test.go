package view

import (
	"testing"

	"github.com/nmxmxh/guerrero/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashmapSchema() *schema.Layout {
	return schema.Build("Scores", []schema.FieldSpec{
		{PropertyKey: "byID", Info: schema.BinaryInfo{
			Kind:        schema.KindHashmap,
			KeyType:     schema.U32,
			ElementInfo: &schema.BinaryInfo{Kind: schema.KindPrimitive, Primitive: schema.U32},
		}},
	})
}

func setSchema() *schema.Layout {
	return schema.Build("Tags", []schema.FieldSpec{
		{PropertyKey: "ids", Info: schema.BinaryInfo{Kind: schema.KindSet, KeyType: schema.U32}},
	})
}

func TestMapSetGetHasDelete(t *testing.T) {
	v, _, _ := newHarness(t, 16384, hashmapSchema())

	require.NoError(t, v.MapSetUint("byID", 1, 100))
	require.NoError(t, v.MapSetUint("byID", 2, 200))

	val, ok, err := v.MapGetUint("byID", 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 100, val)

	has, err := v.MapHas("byID", 2)
	require.NoError(t, err)
	assert.True(t, has)

	deleted, err := v.MapDelete("byID", 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	has, err = v.MapHas("byID", 1)
	require.NoError(t, err)
	assert.False(t, has)

	size, err := v.MapSize("byID")
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)
}

func TestMapSetOverwritesExistingKey(t *testing.T) {
	v, _, _ := newHarness(t, 8192, hashmapSchema())
	require.NoError(t, v.MapSetUint("byID", 5, 1))
	require.NoError(t, v.MapSetUint("byID", 5, 2))

	val, ok, err := v.MapGetUint("byID", 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, val)

	size, err := v.MapSize("byID")
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)
}

func TestMapResizesAndPreservesAllEntries(t *testing.T) {
	v, _, _ := newHarness(t, 65536, hashmapSchema())
	const n = 64
	for i := uint64(0); i < n; i++ {
		require.NoError(t, v.MapSetUint("byID", i, i*2))
	}

	size, err := v.MapSize("byID")
	require.NoError(t, err)
	assert.EqualValues(t, n, size)

	for i := uint64(0); i < n; i++ {
		val, ok, err := v.MapGetUint("byID", i)
		require.NoError(t, err)
		require.True(t, ok)
		assert.EqualValues(t, i*2, val)
	}
}

func TestMapIterateVisitsEveryEntry(t *testing.T) {
	v, _, _ := newHarness(t, 16384, hashmapSchema())
	want := map[uint64]uint64{1: 10, 2: 20, 3: 30}
	for k, val := range want {
		require.NoError(t, v.MapSetUint("byID", k, val))
	}

	got := map[uint64]uint64{}
	require.NoError(t, v.MapIterate("byID", func(k, val uint64) {
		got[k] = val
	}))
	assert.Equal(t, want, got)
}

func TestSetAddHasIterateOmitsValue(t *testing.T) {
	v, _, _ := newHarness(t, 8192, setSchema())
	require.NoError(t, v.SetAdd("ids", 1))
	require.NoError(t, v.SetAdd("ids", 2))
	require.NoError(t, v.SetAdd("ids", 1)) // duplicate is a no-op

	size, err := v.MapSize("ids")
	require.NoError(t, err)
	assert.EqualValues(t, 2, size)

	seen := map[uint64]bool{}
	require.NoError(t, v.MapIterate("ids", func(k, val uint64) {
		seen[k] = true
		assert.EqualValues(t, 0, val)
	}))
	assert.True(t, seen[1])
	assert.True(t, seen[2])
}

func TestMapFreeReleasesBucketsAndEntries(t *testing.T) {
	v, _, _ := newHarness(t, 16384, hashmapSchema())
	for i := uint64(0); i < 20; i++ {
		require.NoError(t, v.MapSetUint("byID", i, i))
	}
	require.NoError(t, v.Free())
}
