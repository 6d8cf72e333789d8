package view

import (
	"github.com/nmxmxh/guerrero/internal/fault"
	"github.com/nmxmxh/guerrero/schema"
)

// Tagged-union layout: tag(u8), padded to the widest
// variant's alignment, then payload(max_variant_size). Tag 0 means "no
// variant selected"; declared variants are keyed by their 1-based tag.
func unionAlignUp(v, align uint32) uint32 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

func unionPayloadOffset(p *schema.PropertyLayout) uint32 {
	var maxAlign uint32 = 1
	for _, variant := range p.Info.Variants {
		_, align := schema.SizeAndAlignOf(variant.Info)
		if align > maxAlign {
			maxAlign = align
		}
	}
	return unionAlignUp(1, maxAlign)
}

func findVariant(p *schema.PropertyLayout, tag uint8) *schema.Variant {
	for i := range p.Info.Variants {
		if p.Info.Variants[i].Tag == tag {
			return &p.Info.Variants[i]
		}
	}
	return nil
}

// UnionTag reads the active variant's tag (0 = none selected).
func (v *View) UnionTag(key string) (uint8, error) {
	p, err := v.prop(key)
	if err != nil {
		return 0, err
	}
	if p.Info.Kind != schema.KindTaggedUnion {
		return 0, fault.ErrTypeError
	}
	return v.buf[v.fieldOffset(p)], nil
}

// UnionVariant returns the descriptor of the currently active variant,
// or nil if no variant is selected.
func (v *View) UnionVariant(key string) (*schema.Variant, error) {
	p, err := v.prop(key)
	if err != nil {
		return nil, err
	}
	if p.Info.Kind != schema.KindTaggedUnion {
		return nil, fault.ErrTypeError
	}
	tag := v.buf[v.fieldOffset(p)]
	if tag == 0 {
		return nil, nil
	}
	return findVariant(p, tag), nil
}

// UnionSelect switches the field to tag, freeing any dynamic children
// the previously active variant owned and zero-filling the payload for
// the new one. tag must be 0 (clear) or a declared variant's tag.
func (v *View) UnionSelect(key string, tag uint8) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindTaggedUnion {
		return fault.ErrTypeError
	}
	if tag != 0 && findVariant(p, tag) == nil {
		return fault.ErrRangeError
	}
	if err := v.freeUnionField(p); err != nil {
		return err
	}

	base := v.fieldOffset(p)
	v.buf[base] = tag

	payloadOff := base + unionPayloadOffset(p)
	payloadSize := p.Size - unionPayloadOffset(p)
	for i := uint32(0); i < payloadSize; i++ {
		v.buf[payloadOff+i] = 0
	}
	return nil
}

// UnionPayloadOffset returns the absolute buffer offset of the active
// payload, for primitive-typed variants the caller reads/writes
// directly with ReadPrimitiveAt/WritePrimitiveAt.
func (v *View) UnionPayloadOffset(key string) (uint32, error) {
	p, err := v.prop(key)
	if err != nil {
		return 0, err
	}
	if p.Info.Kind != schema.KindTaggedUnion {
		return 0, fault.ErrTypeError
	}
	return v.fieldOffset(p) + unionPayloadOffset(p), nil
}

// UnionPayloadView returns a View over the active variant's payload,
// when that variant is itself a record.
func (v *View) UnionPayloadView(key string) (*View, error) {
	p, err := v.prop(key)
	if err != nil {
		return nil, err
	}
	if p.Info.Kind != schema.KindTaggedUnion {
		return nil, fault.ErrTypeError
	}
	tag := v.buf[v.fieldOffset(p)]
	variant := findVariant(p, tag)
	if variant == nil || variant.Info.NestedSchema == nil {
		return nil, fault.ErrTypeError
	}
	off := v.fieldOffset(p) + unionPayloadOffset(p)
	return New(v.buf, off, v.allocator, variant.Info.NestedSchema), nil
}

func (v *View) freeUnionField(p *schema.PropertyLayout) error {
	base := v.fieldOffset(p)
	tag := v.buf[base]
	if tag == 0 {
		return nil
	}
	variant := findVariant(p, tag)
	if variant == nil || variant.Info.NestedSchema == nil {
		return nil
	}
	off := base + unionPayloadOffset(p)
	payload := New(v.buf, off, v.allocator, variant.Info.NestedSchema)
	for i := range payload.schema.Properties {
		if err := payload.freeProperty(&payload.schema.Properties[i]); err != nil {
			return err
		}
	}
	return nil
}
