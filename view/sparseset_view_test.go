package view

import (
	"testing"

	"github.com/nmxmxh/guerrero/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sparseSetSchema() *schema.Layout {
	return schema.Build("Entities", []schema.FieldSpec{
		{PropertyKey: "alive", Info: schema.BinaryInfo{Kind: schema.KindSparseSet}},
	})
}

func TestSparseAddHasRemove(t *testing.T) {
	v, _, _ := newHarness(t, 8192, sparseSetSchema())

	require.NoError(t, v.SparseAdd("alive", 3))
	require.NoError(t, v.SparseAdd("alive", 7))
	require.NoError(t, v.SparseAdd("alive", 3)) // duplicate is a no-op

	has, err := v.SparseHas("alive", 3)
	require.NoError(t, err)
	assert.True(t, has)

	removed, err := v.SparseRemove("alive", 3)
	require.NoError(t, err)
	assert.True(t, removed)

	has, err = v.SparseHas("alive", 3)
	require.NoError(t, err)
	assert.False(t, has)

	has, err = v.SparseHas("alive", 7)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSparseRemoveCompactsViaSwapWithLast(t *testing.T) {
	v, _, _ := newHarness(t, 8192, sparseSetSchema())
	for _, id := range []uint32{1, 2, 3, 4} {
		require.NoError(t, v.SparseAdd("alive", id))
	}

	_, err := v.SparseRemove("alive", 2)
	require.NoError(t, err)

	seen := map[uint32]bool{}
	require.NoError(t, v.SparseIterate("alive", func(id uint32) {
		seen[id] = true
	}))
	assert.Equal(t, map[uint32]bool{1: true, 3: true, 4: true}, seen)
}

func TestSparseClearFreesBackingArraysAndResetsCount(t *testing.T) {
	v, _, reg := newHarness(t, 8192, sparseSetSchema())
	require.NoError(t, v.SparseAdd("alive", 1))
	require.NoError(t, v.SparseAdd("alive", 2))
	beforeClear := reg.Len()

	require.NoError(t, v.SparseClear("alive"))
	assert.Less(t, reg.Len(), beforeClear)

	count := 0
	require.NoError(t, v.SparseIterate("alive", func(id uint32) { count++ }))
	assert.Equal(t, 0, count)

	has, err := v.SparseHas("alive", 1)
	require.NoError(t, err)
	assert.False(t, has)

	// backing arrays were freed, not just emptied; re-adding must still work.
	require.NoError(t, v.SparseAdd("alive", 5))
	has, err = v.SparseHas("alive", 5)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSparseHandlesLargeSparseIDWithoutPanicking(t *testing.T) {
	v, _, _ := newHarness(t, 8192, sparseSetSchema())
	require.NoError(t, v.SparseAdd("alive", 500))

	has, err := v.SparseHas("alive", 500)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = v.SparseHas("alive", 1)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSparseFreeReleasesDenseAndSparseStorage(t *testing.T) {
	v, _, _ := newHarness(t, 8192, sparseSetSchema())
	for id := uint32(0); id < 10; id++ {
		require.NoError(t, v.SparseAdd("alive", id))
	}
	require.NoError(t, v.Free())
}
