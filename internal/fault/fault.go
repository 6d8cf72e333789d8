// Package fault defines the sentinel errors the memory subsystem returns,
// so callers can distinguish them with errors.Is rather than string
// matching, the same plain-error-return idiom
// nmxmxh-inos_v1/kernel/threads/sab/epoch_allocator.go uses throughout.
package fault

import "errors"

var (
	// ErrOutOfMemory is returned by the view runtime when an allocate or
	// reallocate it needs fails; the tlsf allocator itself reports
	// exhaustion by returning pointer 0. Never corrupts the pool.
	ErrOutOfMemory = errors.New("guerrero: out of memory")

	// ErrInvalidPointer is returned when a pointer is outside the
	// managed region, or (safety builds) refers to a free block.
	ErrInvalidPointer = errors.New("guerrero: invalid pointer")

	// ErrDoubleFree is returned when freeing an already-free block.
	ErrDoubleFree = errors.New("guerrero: double free")

	// ErrRangeError is returned when a numeric value does not fit the
	// declared width of a field.
	ErrRangeError = errors.New("guerrero: value out of range")

	// ErrTypeError is returned when a value's Go type does not match the
	// field's declared binary kind.
	ErrTypeError = errors.New("guerrero: value has wrong type")

	// ErrUseAfterFree is returned (safety builds, best-effort) when an
	// operation touches a pointer the allocator believes is free.
	ErrUseAfterFree = errors.New("guerrero: use after free")

	// ErrRegionTooSmall is returned by tlsf.New when the region cannot
	// host one minimum-size payload plus the sentinel block.
	ErrRegionTooSmall = errors.New("guerrero: region too small for one block")

	// ErrRegionOutOfBounds is returned by tlsf.New when the requested
	// region does not fit inside the supplied buffer.
	ErrRegionOutOfBounds = errors.New("guerrero: region out of buffer bounds")

	// ErrSchemaResolution is returned by the view runtime when a property
	// key is not in the record's schema or a nested field has no schema.
	// The inspector does not report it; a nested field whose view cannot
	// be built is emitted with no children.
	ErrSchemaResolution = errors.New("guerrero: schema not registered")
)
