package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRootAndChild(t *testing.T) {
	r := New()
	r.Register(100, 1, 0)
	r.Register(200, 2, 100)

	parent, ok := r.GetNode(100)
	require.True(t, ok)
	_, isChild := parent.Children[200]
	assert.True(t, isChild)

	child, ok := r.GetNode(200)
	require.True(t, ok)
	assert.True(t, child.HasParent)
	assert.Equal(t, uint32(100), child.Parent)

	roots := r.GetRootPointers()
	assert.ElementsMatch(t, []uint32{100}, roots)
}

func TestUnregisterReparentsChildren(t *testing.T) {
	r := New()
	r.Register(100, 1, 0)
	r.Register(200, 2, 100)
	r.Register(300, 3, 200)

	r.Unregister(200)

	_, ok := r.GetNode(200)
	assert.False(t, ok)

	child, ok := r.GetNode(300)
	require.True(t, ok)
	assert.Equal(t, uint32(100), child.Parent, "grandchild reparents to removed node's parent")

	parent, _ := r.GetNode(100)
	_, isChild := parent.Children[300]
	assert.True(t, isChild)
	_, stillHasOldChild := parent.Children[200]
	assert.False(t, stillHasOldChild)
}

func TestUnregisterRootReparentsToRoots(t *testing.T) {
	r := New()
	r.Register(100, 1, 0)
	r.Register(200, 2, 100)

	r.Unregister(100)

	roots := r.GetRootPointers()
	assert.ElementsMatch(t, []uint32{200}, roots)
	child, _ := r.GetNode(200)
	assert.False(t, child.HasParent)
}

func TestMoveTransfersChildren(t *testing.T) {
	r := New()
	r.Register(100, 1, 0)
	r.Register(200, 2, 100)

	r.Move(100, 999)

	_, ok := r.GetNode(100)
	assert.False(t, ok)

	moved, ok := r.GetNode(999)
	require.True(t, ok)
	_, hasChild := moved.Children[200]
	assert.True(t, hasChild)

	child, _ := r.GetNode(200)
	assert.Equal(t, uint32(999), child.Parent)

	roots := r.GetRootPointers()
	assert.ElementsMatch(t, []uint32{999}, roots)
}

func TestRegisterStealSemantics(t *testing.T) {
	r := New()
	r.Register(100, 1, 0)
	r.Register(200, 2, 100)

	// Re-registering 100 with a different parent steals it, reparenting
	// its existing children first.
	r.Register(300, 9, 0)
	r.Register(100, 1, 300)

	child, _ := r.GetNode(200)
	assert.False(t, child.HasParent, "200 reparents to roots since old 100 node is removed first")

	newParent, ok := r.GetNode(100)
	require.True(t, ok)
	assert.Equal(t, uint32(300), newParent.Parent)
}

func TestContainsAndClear(t *testing.T) {
	r := New()
	r.Register(100, 1, 0)
	assert.True(t, r.Contains(100))
	assert.False(t, r.Contains(999))

	r.Clear()
	assert.False(t, r.Contains(100))
	assert.Equal(t, 0, r.Len())
}
