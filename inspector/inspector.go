// Package inspector walks a view's record tree into a plain value tree
// for visualization tooling, the same
// GetStats-returns-a-tree-of-structs shape
// nmxmxh-inos_v1/kernel/threads/arena/allocator.go uses for its
// HybridStats/SlabStats/BuddyStats nesting, generalized to an
// arbitrary-depth, schema-driven tree instead of a fixed set of struct
// types.
package inspector

import (
	"fmt"

	"github.com/nmxmxh/guerrero/schema"
	"github.com/nmxmxh/guerrero/tlsf"
	"github.com/nmxmxh/guerrero/view"
)

// Node is one entry of the inspected tree.
type Node struct {
	Name                string
	Type                string
	Offset              uint32
	Size                uint32
	Value               any
	Children            []Node
	TotalChildrenCount  int
	HasTotalChildrenCnt bool
}

// Pagination bounds how many dynamic-container elements/entries get
// expanded into children. Zero value means "use the default" (start 0,
// count 100).
type Pagination struct {
	StartIndex int
	Count      int
}

// Options configures one Inspect call.
type Options struct {
	Pagination Pagination
}

func (o Options) pagination() Pagination {
	p := o.Pagination
	if p.Count == 0 && p.StartIndex == 0 {
		return Pagination{StartIndex: 0, Count: 100}
	}
	return p
}

// Inspect renders v's record into a tree rooted at its own record node.
func Inspect(v *view.View, opts Options) Node {
	root := Node{
		Name:   v.Schema().Name,
		Type:   "struct",
		Offset: v.Offset(),
		Size:   v.Schema().TotalSize,
	}
	for i := range v.Schema().Properties {
		root.Children = append(root.Children, inspectProperty(v, &v.Schema().Properties[i], opts))
	}
	return root
}

func inspectProperty(v *view.View, p *schema.PropertyLayout, opts Options) Node {
	n := Node{
		Name:   p.PropertyKey,
		Type:   p.Info.Kind.String(),
		Offset: p.Offset,
		Size:   p.Size,
	}

	switch p.Info.Kind {
	case schema.KindPrimitive:
		n.Value = inspectPrimitiveValue(v, p)

	case schema.KindBitField:
		val, _ := v.GetBitField(p.PropertyKey)
		n.Value = val

	case schema.KindEnum:
		m, err := v.GetEnum(p.PropertyKey)
		if err != nil {
			n.Value = nil
		} else {
			n.Value = fmt.Sprintf("%s (%d)", m.Name, m.Value)
		}

	case schema.KindNestedStruct, schema.KindTuple:
		nested, err := v.Nested(p.PropertyKey)
		if err == nil {
			for i := range nested.Schema().Properties {
				n.Children = append(n.Children, inspectProperty(nested, &nested.Schema().Properties[i], opts))
			}
		}

	case schema.KindFixedArray:
		inspectFixedArray(v, p, &n, opts)

	case schema.KindDynamicString:
		s, err := v.String(p.PropertyKey)
		if err == nil {
			n.Value = s
		}

	case schema.KindDynamicArray:
		inspectDynamicArray(v, p, &n, opts)

	case schema.KindHashmap, schema.KindSet:
		inspectMap(v, p, &n, opts)

	case schema.KindSparseSet:
		inspectSparseSet(v, p, &n, opts)

	case schema.KindTaggedUnion:
		inspectUnion(v, p, &n, opts)

	default:
		n.Value = "<unsupported>"
	}

	return n
}

func inspectPrimitiveValue(v *view.View, p *schema.PropertyLayout) any {
	switch p.Info.Primitive {
	case schema.F32:
		val, _ := v.GetFloat32(p.PropertyKey)
		return val
	case schema.F64:
		val, _ := v.GetFloat64(p.PropertyKey)
		return val
	case schema.Bool:
		val, _ := v.GetBool(p.PropertyKey)
		return val
	case schema.I8, schema.I16, schema.I32, schema.I64:
		val, _ := v.GetInt(p.PropertyKey)
		return val
	default:
		val, _ := v.GetUint(p.PropertyKey)
		return val
	}
}

func inspectFixedArray(v *view.View, p *schema.PropertyLayout, n *Node, opts Options) {
	n.TotalChildrenCount = p.Info.ElementCount
	n.HasTotalChildrenCnt = true

	isRecord := p.Info.ElementInfo != nil && p.Info.ElementInfo.NestedSchema != nil
	pg := opts.pagination()
	end := pg.StartIndex + pg.Count
	if end > p.Info.ElementCount {
		end = p.Info.ElementCount
	}
	for i := pg.StartIndex; i < end; i++ {
		if isRecord {
			elem, err := v.FixedArrayElement(p.PropertyKey, i)
			if err != nil {
				continue
			}
			child := Node{Name: fmt.Sprintf("[%d]", i), Type: "struct", Offset: elem.Offset()}
			for j := range elem.Schema().Properties {
				child.Children = append(child.Children, inspectProperty(elem, &elem.Schema().Properties[j], opts))
			}
			n.Children = append(n.Children, child)
			continue
		}
		off, err := v.FixedArrayElementOffset(p.PropertyKey, i)
		if err != nil {
			continue
		}
		val := view.ReadPrimitiveAt(rawBuf(v), off, p.Info.ElementInfo.Primitive)
		n.Children = append(n.Children, Node{
			Name:  fmt.Sprintf("[%d]", i),
			Type:  p.Info.ElementInfo.Primitive.String(),
			Value: val,
		})
	}
}

func inspectDynamicArray(v *view.View, p *schema.PropertyLayout, n *Node, opts Options) {
	if v.Allocator() == nil {
		n.Value = rawControlPointer(v, p)
		return
	}
	length, _ := v.ArrayLength(p.PropertyKey)
	capacity, _ := v.ArrayCapacity(p.PropertyKey)
	n.Children = append(n.Children,
		Node{Name: "length", Type: "u32", Value: length},
		Node{Name: "capacity", Type: "u32", Value: capacity},
	)
	n.TotalChildrenCount = int(length)
	n.HasTotalChildrenCnt = true

	isRecord := p.Info.ElementInfo != nil && p.Info.ElementInfo.NestedSchema != nil
	pg := opts.pagination()
	end := uint32(pg.StartIndex + pg.Count)
	if end > length {
		end = length
	}
	for i := uint32(pg.StartIndex); i < end; i++ {
		if isRecord {
			elem, err := v.ArrayElement(p.PropertyKey, i)
			if err != nil {
				continue
			}
			child := Node{Name: fmt.Sprintf("[%d]", i), Type: "struct", Offset: elem.Offset()}
			for j := range elem.Schema().Properties {
				child.Children = append(child.Children, inspectProperty(elem, &elem.Schema().Properties[j], opts))
			}
			n.Children = append(n.Children, child)
			continue
		}
		val, err := v.ArrayGetUint(p.PropertyKey, i)
		if err != nil {
			continue
		}
		n.Children = append(n.Children, Node{
			Name:  fmt.Sprintf("[%d]", i),
			Type:  p.Info.ElementInfo.Primitive.String(),
			Value: val,
		})
	}
}

func inspectMap(v *view.View, p *schema.PropertyLayout, n *Node, opts Options) {
	if v.Allocator() == nil {
		n.Value = rawControlPointer(v, p)
		return
	}
	size, _ := v.MapSize(p.PropertyKey)
	n.Children = append(n.Children, Node{Name: "size", Type: "u32", Value: size})
	n.TotalChildrenCount = int(size)
	n.HasTotalChildrenCnt = true

	pg := opts.pagination()
	isSet := p.Info.Kind == schema.KindSet
	idx := 0
	_ = v.MapIterate(p.PropertyKey, func(key, val uint64) {
		if idx < pg.StartIndex || idx >= pg.StartIndex+pg.Count {
			idx++
			return
		}
		entry := Node{Name: fmt.Sprintf("entry[%d]", idx), Type: "entry"}
		entry.Children = append(entry.Children, Node{Name: "key", Type: p.Info.KeyType.String(), Value: key})
		if !isSet {
			entry.Children = append(entry.Children, Node{Name: "value", Type: p.Info.ElementInfo.Primitive.String(), Value: val})
		}
		n.Children = append(n.Children, entry)
		idx++
	})
}

func inspectSparseSet(v *view.View, p *schema.PropertyLayout, n *Node, opts Options) {
	if v.Allocator() == nil {
		n.Value = rawControlPointer(v, p)
		return
	}
	pg := opts.pagination()
	idx := 0
	count := 0
	_ = v.SparseIterate(p.PropertyKey, func(id uint32) {
		count++
		if idx < pg.StartIndex || idx >= pg.StartIndex+pg.Count {
			idx++
			return
		}
		n.Children = append(n.Children, Node{Name: fmt.Sprintf("[%d]", idx), Type: "u32", Value: id})
		idx++
	})
	n.TotalChildrenCount = count
	n.HasTotalChildrenCnt = true
}

func inspectUnion(v *view.View, p *schema.PropertyLayout, n *Node, opts Options) {
	variant, err := v.UnionVariant(p.PropertyKey)
	if err != nil || variant == nil {
		n.Value = nil
		return
	}
	child := Node{Name: variant.Name, Type: variant.Info.Kind.String()}
	if variant.Info.NestedSchema != nil {
		payload, err := v.UnionPayloadView(p.PropertyKey)
		if err == nil {
			for i := range payload.Schema().Properties {
				child.Children = append(child.Children, inspectProperty(payload, &payload.Schema().Properties[i], opts))
			}
		}
	} else {
		off, err := v.UnionPayloadOffset(p.PropertyKey)
		if err == nil {
			child.Value = view.ReadPrimitiveAt(rawBuf(v), off, variant.Info.Primitive)
		}
	}
	n.Children = append(n.Children, child)
}

// InspectAllAllocations walks the registry's root pointers and inspects
// each one, resolving the owner schema from the node's OwnerTypeID via
// resolveSchema. Debug-only: alloc.Registry() returning nil (no
// registry wired) yields an empty result.
func InspectAllAllocations(buf []byte, alloc *tlsf.Allocator, resolveSchema func(ownerTypeID uint32) *schema.Layout, opts Options) []Node {
	reg := alloc.Registry()
	if reg == nil {
		return nil
	}
	var out []Node
	for _, ptr := range reg.GetRootPointers() {
		node, ok := reg.GetNode(ptr)
		if !ok {
			continue
		}
		sch := resolveSchema(node.OwnerTypeID)
		if sch == nil {
			out = append(out, Node{Name: fmt.Sprintf("0x%x", ptr), Type: "unknown", Offset: ptr})
			continue
		}
		out = append(out, Inspect(view.New(buf, ptr, alloc, sch), opts))
	}
	return out
}

func rawBuf(v *view.View) []byte {
	return v.RawBuffer()
}

// rawControlPointer reads a dynamic field's u32 control pointer
// directly, for the allocator-absent case: show the raw
// pointer, not the container's contents.
func rawControlPointer(v *view.View, p *schema.PropertyLayout) uint32 {
	off, err := v.FieldOffset(p.PropertyKey)
	if err != nil {
		return 0
	}
	return view.ReadPrimitiveAt(rawBuf(v), off, schema.U32)
}
