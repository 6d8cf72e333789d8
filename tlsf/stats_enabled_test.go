//go:build stats

package tlsf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStatisticsTracksOccupancy(t *testing.T) {
	a := newPool(t, 4096)
	p1 := a.Allocate(64, 1, 0)
	p2 := a.Allocate(128, 1, 0)

	st := a.GetStatistics()
	assert.Equal(t, uint32(2), st.AllocationCount)
	assert.True(t, st.UsedBytes >= 64+128)
	assert.True(t, st.FreeBytes > 0)

	require.NoError(t, a.Free(p1))
	require.NoError(t, a.Free(p2))

	st = a.GetStatistics()
	assert.Equal(t, uint32(0), st.AllocationCount)
	assert.Equal(t, uint32(0), st.UsedBytes)
}

func TestWalkPoolVisitsSentinelLast(t *testing.T) {
	a := newPool(t, 4096)
	a.Allocate(64, 1, 0)

	var blocks []PoolBlock
	a.WalkPool(func(b PoolBlock) { blocks = append(blocks, b) })

	require.NotEmpty(t, blocks)
	last := blocks[len(blocks)-1]
	assert.True(t, last.IsFinal)
	assert.Equal(t, uint32(0), last.Size)
}
