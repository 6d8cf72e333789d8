// Package registry implements the debug-only allocation registry: a
// parent->children tree of live allocations keyed by user pointer, used
// for visualization and deep-free cross-checking.
//
// The map+RWMutex shape follows
// nmxmxh-inos_v1/kernel/threads/registry/loader.go's ModuleRegistry; the
// live-pointer membership test below additionally keeps a
// github.com/bits-and-blooms/bitset.BitSet indexed by user pointer, with
// a bit set for every currently registered pointer, so Contains rejects
// an unregistered pointer without a map probe.
package registry

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Node describes one tracked allocation.
type Node struct {
	Ptr         uint32
	OwnerTypeID uint32
	HasParent   bool
	Parent      uint32
	Children    map[uint32]struct{}
}

// Registry is the parent->children tree of live allocations.
type Registry struct {
	mu    sync.RWMutex
	nodes map[uint32]*Node
	roots map[uint32]struct{}
	live  *bitset.BitSet
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		nodes: make(map[uint32]*Node),
		roots: make(map[uint32]struct{}),
		live:  bitset.New(0),
	}
}

// Contains reports whether ptr currently has a registered node.
func (r *Registry) Contains(ptr uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.live.Test(uint(ptr)) {
		return false
	}
	_, ok := r.nodes[ptr]
	return ok
}

// Register creates a node for ptr under parent (parent == 0 means root).
// If ptr already has a node, it is first unregistered — its children are
// transparently reparented — before the new node is created. This
// supports "steal" semantics when a view re-owns memory.
func (r *Registry) Register(ptr, owner, parent uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[ptr]; exists {
		r.unregisterLocked(ptr)
	}

	n := &Node{
		Ptr:         ptr,
		OwnerTypeID: owner,
		HasParent:   parent != 0,
		Parent:      parent,
		Children:    make(map[uint32]struct{}),
	}
	r.nodes[ptr] = n
	r.live.Set(uint(ptr))

	if n.HasParent {
		if p, ok := r.nodes[parent]; ok {
			p.Children[ptr] = struct{}{}
		}
	} else {
		r.roots[ptr] = struct{}{}
	}
}

// Unregister removes ptr's node, reparenting every child to ptr's own
// parent (or to the roots if ptr was itself a root).
func (r *Registry) Unregister(ptr uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisterLocked(ptr)
}

func (r *Registry) unregisterLocked(ptr uint32) {
	n, ok := r.nodes[ptr]
	if !ok {
		return
	}

	for child := range n.Children {
		if c, ok := r.nodes[child]; ok {
			c.HasParent = n.HasParent
			c.Parent = n.Parent
			if n.HasParent {
				if p, ok := r.nodes[n.Parent]; ok {
					p.Children[child] = struct{}{}
				}
			} else {
				r.roots[child] = struct{}{}
			}
		}
	}

	if n.HasParent {
		if p, ok := r.nodes[n.Parent]; ok {
			delete(p.Children, ptr)
		}
	} else {
		delete(r.roots, ptr)
	}

	delete(r.nodes, ptr)
	r.live.Clear(uint(ptr))
}

// Move transfers a node from oldPtr to newPtr, preserving its parent link
// and its children (whose parent link is rewritten to newPtr). Used when
// reallocate moves a block. Children are reparented before the caller
// frees the old block.
//
// If newPtr already has a node — the common realloc-move case, where the
// caller already called Register(newPtr, ...) to allocate the
// destination block before copying — old's children are merged into that
// existing node instead of clobbering its owner/parent, which reflect the
// caller's fresh Register call and must win.
func (r *Registry) Move(oldPtr, newPtr uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.nodes[oldPtr]
	if !ok {
		return
	}

	if dst, exists := r.nodes[newPtr]; exists {
		for child := range old.Children {
			if c, ok := r.nodes[child]; ok {
				c.Parent = newPtr
				c.HasParent = true
			}
			dst.Children[child] = struct{}{}
		}
		if old.HasParent {
			if p, ok := r.nodes[old.Parent]; ok {
				delete(p.Children, oldPtr)
			}
		} else {
			delete(r.roots, oldPtr)
		}
	} else {
		old.Ptr = newPtr
		r.nodes[newPtr] = old
		r.live.Set(uint(newPtr))

		if old.HasParent {
			if p, ok := r.nodes[old.Parent]; ok {
				delete(p.Children, oldPtr)
				p.Children[newPtr] = struct{}{}
			}
		} else {
			delete(r.roots, oldPtr)
			r.roots[newPtr] = struct{}{}
		}

		for child := range old.Children {
			if c, ok := r.nodes[child]; ok {
				c.Parent = newPtr
			}
		}
	}

	delete(r.nodes, oldPtr)
	r.live.Clear(uint(oldPtr))
}

// ReparentChildrenOf rewrites every node whose parent is oldParent to
// have newParent instead. Used when a dynamic container's backing
// storage block moves (array/hashmap/sparse-set growth) but the
// elements living inside it keep their own registered identity — unlike
// Move, which renames a single node's own pointer.
func (r *Registry) ReparentChildrenOf(oldParent, newParent uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldNode, hadOld := r.nodes[oldParent]
	children := map[uint32]struct{}{}
	if hadOld {
		for c := range oldNode.Children {
			children[c] = struct{}{}
		}
	} else {
		for ptr, n := range r.nodes {
			if n.HasParent && n.Parent == oldParent {
				children[ptr] = struct{}{}
			}
		}
	}

	newNode, hasNew := r.nodes[newParent]
	for child := range children {
		if c, ok := r.nodes[child]; ok {
			c.Parent = newParent
			c.HasParent = true
		}
		if hasNew {
			newNode.Children[child] = struct{}{}
		}
	}
	if hadOld {
		oldNode.Children = make(map[uint32]struct{})
	}
}

// GetNode returns a copy of ptr's node (children set shared by reference
// for read-only inspection) and whether it exists.
func (r *Registry) GetNode(ptr uint32) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[ptr]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// GetRootPointers returns every pointer with no parent.
func (r *Registry) GetRootPointers() []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint32, 0, len(r.roots))
	for p := range r.roots {
		out = append(out, p)
	}
	return out
}

// Clear empties the registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = make(map[uint32]*Node)
	r.roots = make(map[uint32]struct{})
	r.live = bitset.New(0)
}

// Len returns the number of tracked allocations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}
