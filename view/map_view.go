package view

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/nmxmxh/guerrero/internal/fault"
	"github.com/nmxmxh/guerrero/schema"
)

// Hashmap/set control block layout:
//   count(u32) | bucket_capacity(u32) | buckets_ptr(u32)
// buckets_ptr points at a separate allocation of bucket_capacity u32
// bucket-head pointers (0 = empty bucket). Each entry is its own
// allocation chained through the bucket it hashes into:
//   next(u32) | key_bytes[keySize] | value_bytes[valueSize]
// value_bytes is omitted entirely for a KindSet field. Resize doubles
// bucket_capacity (minimum 8) once count*4 > bucket_capacity*3 (a 0.75
// load factor), a baseline sufficient for amortized
// O(1) — resolved in DESIGN.md.
const mapCtrlSize = 12

const (
	mapOffCount      = 0
	mapOffBucketCap  = 4
	mapOffBucketsPtr = 8
)

const entryOffNext = 0
const minBucketCapacity = 8
const loadFactorNum, loadFactorDen = 3, 4

func (v *View) mapKeySize(p *schema.PropertyLayout) uint32 {
	return p.Info.KeyType.Size()
}

func (v *View) mapValueSize(p *schema.PropertyLayout) uint32 {
	if p.Info.Kind == schema.KindSet {
		return 0
	}
	size, _ := schema.SizeAndAlignOf(p.Info.ElementInfo)
	return size
}

func (v *View) mapEntryStride(p *schema.PropertyLayout) uint32 {
	return 4 + v.mapKeySize(p) + v.mapValueSize(p)
}

func hashKeyBytes(b []byte) uint32 {
	h := fnv.New32a()
	h.Write(b)
	return h.Sum32()
}

func (v *View) encodeMapKey(p *schema.PropertyLayout, key uint64) []byte {
	size := v.mapKeySize(p)
	b := make([]byte, size)
	writeUint(b, 0, p.Info.KeyType, key)
	return b
}

// MapSize returns the number of entries currently stored.
func (v *View) MapSize(key string) (uint32, error) {
	p, err := v.prop(key)
	if err != nil {
		return 0, err
	}
	if p.Info.Kind != schema.KindHashmap && p.Info.Kind != schema.KindSet {
		return 0, fault.ErrTypeError
	}
	ctrl := v.controlPtr(p)
	if ctrl == 0 {
		return 0, nil
	}
	return binary.LittleEndian.Uint32(v.buf[ctrl+mapOffCount : ctrl+mapOffCount+4]), nil
}

func (v *View) ensureMapCtrl(p *schema.PropertyLayout) (uint32, error) {
	ctrl := v.controlPtr(p)
	if ctrl != 0 {
		return ctrl, nil
	}
	if v.allocator == nil {
		return 0, fault.ErrTypeError
	}
	ctrl = v.allocator.Allocate(mapCtrlSize, 0, v.offset)
	if ctrl == 0 {
		return 0, fault.ErrOutOfMemory
	}
	binary.LittleEndian.PutUint32(v.buf[ctrl+mapOffCount:ctrl+mapOffCount+4], 0)
	binary.LittleEndian.PutUint32(v.buf[ctrl+mapOffBucketCap:ctrl+mapOffBucketCap+4], 0)
	binary.LittleEndian.PutUint32(v.buf[ctrl+mapOffBucketsPtr:ctrl+mapOffBucketsPtr+4], 0)
	v.setControlPtr(p, ctrl)
	return ctrl, nil
}

func (v *View) mapBucketsPtr(ctrl uint32) uint32 {
	return binary.LittleEndian.Uint32(v.buf[ctrl+mapOffBucketsPtr : ctrl+mapOffBucketsPtr+4])
}

func (v *View) mapBucketCap(ctrl uint32) uint32 {
	return binary.LittleEndian.Uint32(v.buf[ctrl+mapOffBucketCap : ctrl+mapOffBucketCap+4])
}

func (v *View) mapBucketHead(bucketsPtr, bucketCap, idx uint32) uint32 {
	off := bucketsPtr + (idx%bucketCap)*4
	return binary.LittleEndian.Uint32(v.buf[off : off+4])
}

func (v *View) setMapBucketHead(bucketsPtr, bucketCap, idx, entryPtr uint32) {
	off := bucketsPtr + (idx%bucketCap)*4
	binary.LittleEndian.PutUint32(v.buf[off:off+4], entryPtr)
}

func (v *View) entryNext(entryPtr uint32) uint32 {
	return binary.LittleEndian.Uint32(v.buf[entryPtr+entryOffNext : entryPtr+entryOffNext+4])
}

func (v *View) setEntryNext(entryPtr, next uint32) {
	binary.LittleEndian.PutUint32(v.buf[entryPtr+entryOffNext:entryPtr+entryOffNext+4], next)
}

func (v *View) entryKeyBytes(entryPtr uint32, p *schema.PropertyLayout) []byte {
	start := entryPtr + 4
	return v.buf[start : start+v.mapKeySize(p)]
}

func (v *View) entryValueOffset(entryPtr uint32, p *schema.PropertyLayout) uint32 {
	return entryPtr + 4 + v.mapKeySize(p)
}

// mapFindEntry walks the bucket chain for keyBytes, returning the
// matching entry pointer (0 if absent) and the bucket index it hashes
// to. When bucket_capacity is 0 it returns (0, 0) without hashing, so
// the modulo below never divides by zero.
func (v *View) mapFindEntry(ctrl uint32, p *schema.PropertyLayout, keyBytes []byte) (entryPtr uint32, bucketIdx uint32) {
	bucketCap := v.mapBucketCap(ctrl)
	if bucketCap == 0 {
		return 0, 0
	}
	bucketsPtr := v.mapBucketsPtr(ctrl)
	idx := hashKeyBytes(keyBytes) % bucketCap
	cur := v.mapBucketHead(bucketsPtr, bucketCap, idx)
	keySize := v.mapKeySize(p)
	for cur != 0 {
		if string(v.entryKeyBytes(cur, p)[:keySize]) == string(keyBytes) {
			return cur, idx
		}
		cur = v.entryNext(cur)
	}
	return 0, idx
}

// MapHas reports whether key is present.
func (v *View) MapHas(key string, mapKey uint64) (bool, error) {
	p, ctrl, err := v.mapCheck(key)
	if err != nil {
		return false, err
	}
	if ctrl == 0 {
		return false, nil
	}
	kb := v.encodeMapKey(p, mapKey)
	entry, _ := v.mapFindEntry(ctrl, p, kb)
	return entry != 0, nil
}

func (v *View) mapCheck(key string) (*schema.PropertyLayout, uint32, error) {
	p, err := v.prop(key)
	if err != nil {
		return nil, 0, err
	}
	if p.Info.Kind != schema.KindHashmap && p.Info.Kind != schema.KindSet {
		return nil, 0, fault.ErrTypeError
	}
	return p, v.controlPtr(p), nil
}

// MapGetUint reads the primitive value stored for key.
func (v *View) MapGetUint(key string, mapKey uint64) (uint64, bool, error) {
	p, ctrl, err := v.mapCheck(key)
	if err != nil {
		return 0, false, err
	}
	if p.Info.Kind != schema.KindHashmap || ctrl == 0 {
		return 0, false, nil
	}
	kb := v.encodeMapKey(p, mapKey)
	entry, _ := v.mapFindEntry(ctrl, p, kb)
	if entry == 0 {
		return 0, false, nil
	}
	off := v.entryValueOffset(entry, p)
	return readUint(v.buf, off, p.Info.ElementInfo.Primitive), true, nil
}

func (v *View) mapMaybeResize(p *schema.PropertyLayout, ctrl uint32) error {
	count := binary.LittleEndian.Uint32(v.buf[ctrl+mapOffCount : ctrl+mapOffCount+4])
	bucketCap := v.mapBucketCap(ctrl)
	if bucketCap != 0 && count*loadFactorDen <= bucketCap*loadFactorNum {
		return nil
	}
	newCap := bucketCap * 2
	if newCap < minBucketCapacity {
		newCap = minBucketCapacity
	}

	newBuckets := v.allocator.Allocate(newCap*4, 0, ctrl)
	if newBuckets == 0 {
		return fault.ErrOutOfMemory
	}
	for i := uint32(0); i < newCap; i++ {
		binary.LittleEndian.PutUint32(v.buf[newBuckets+i*4:newBuckets+i*4+4], 0)
	}

	oldBuckets := v.mapBucketsPtr(ctrl)
	if oldBuckets != 0 {
		keySize := v.mapKeySize(p)
		for i := uint32(0); i < bucketCap; i++ {
			cur := v.mapBucketHead(oldBuckets, bucketCap, i)
			for cur != 0 {
				next := v.entryNext(cur)
				idx := hashKeyBytes(v.entryKeyBytes(cur, p)[:keySize]) % newCap
				head := v.mapBucketHead(newBuckets, newCap, idx)
				v.setEntryNext(cur, head)
				v.setMapBucketHead(newBuckets, newCap, idx, cur)
				cur = next
			}
		}
		if err := v.allocator.Free(oldBuckets); err != nil {
			return err
		}
	}

	binary.LittleEndian.PutUint32(v.buf[ctrl+mapOffBucketCap:ctrl+mapOffBucketCap+4], newCap)
	binary.LittleEndian.PutUint32(v.buf[ctrl+mapOffBucketsPtr:ctrl+mapOffBucketsPtr+4], newBuckets)
	return nil
}

// MapSetUint inserts or overwrites key's primitive value.
func (v *View) MapSetUint(key string, mapKey, val uint64) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindHashmap {
		return fault.ErrTypeError
	}
	if v.allocator == nil {
		return fault.ErrTypeError
	}
	ctrl, err := v.ensureMapCtrl(p)
	if err != nil {
		return err
	}
	kb := v.encodeMapKey(p, mapKey)
	if entry, _ := v.mapFindEntry(ctrl, p, kb); entry != 0 {
		off := v.entryValueOffset(entry, p)
		writeUint(v.buf, off, p.Info.ElementInfo.Primitive, val)
		return nil
	}

	if err := v.mapMaybeResize(p, ctrl); err != nil {
		return err
	}

	stride := v.mapEntryStride(p)
	entry := v.allocator.Allocate(stride, 0, ctrl)
	if entry == 0 {
		return fault.ErrOutOfMemory
	}
	copy(v.buf[entry+4:entry+4+uint32(len(kb))], kb)
	writeUint(v.buf, v.entryValueOffset(entry, p), p.Info.ElementInfo.Primitive, val)

	bucketCap := v.mapBucketCap(ctrl)
	bucketsPtr := v.mapBucketsPtr(ctrl)
	idx := hashKeyBytes(kb) % bucketCap
	head := v.mapBucketHead(bucketsPtr, bucketCap, idx)
	v.setEntryNext(entry, head)
	v.setMapBucketHead(bucketsPtr, bucketCap, idx, entry)

	count := binary.LittleEndian.Uint32(v.buf[ctrl+mapOffCount : ctrl+mapOffCount+4])
	binary.LittleEndian.PutUint32(v.buf[ctrl+mapOffCount:ctrl+mapOffCount+4], count+1)
	return nil
}

// SetAdd inserts mapKey into a KindSet field (a no-op if already
// present).
func (v *View) SetAdd(key string, mapKey uint64) error {
	p, err := v.prop(key)
	if err != nil {
		return err
	}
	if p.Info.Kind != schema.KindSet {
		return fault.ErrTypeError
	}
	if v.allocator == nil {
		return fault.ErrTypeError
	}
	ctrl, err := v.ensureMapCtrl(p)
	if err != nil {
		return err
	}
	kb := v.encodeMapKey(p, mapKey)
	if entry, _ := v.mapFindEntry(ctrl, p, kb); entry != 0 {
		return nil
	}
	if err := v.mapMaybeResize(p, ctrl); err != nil {
		return err
	}
	stride := v.mapEntryStride(p)
	entry := v.allocator.Allocate(stride, 0, ctrl)
	if entry == 0 {
		return fault.ErrOutOfMemory
	}
	copy(v.buf[entry+4:entry+4+uint32(len(kb))], kb)

	bucketCap := v.mapBucketCap(ctrl)
	bucketsPtr := v.mapBucketsPtr(ctrl)
	idx := hashKeyBytes(kb) % bucketCap
	head := v.mapBucketHead(bucketsPtr, bucketCap, idx)
	v.setEntryNext(entry, head)
	v.setMapBucketHead(bucketsPtr, bucketCap, idx, entry)

	count := binary.LittleEndian.Uint32(v.buf[ctrl+mapOffCount : ctrl+mapOffCount+4])
	binary.LittleEndian.PutUint32(v.buf[ctrl+mapOffCount:ctrl+mapOffCount+4], count+1)
	return nil
}

// MapDelete removes key, reporting whether it was present. Freeing a
// record-typed value's own dynamic children is the caller's
// responsibility before calling MapDelete — the map itself
// only owns the entry allocation.
func (v *View) MapDelete(key string, mapKey uint64) (bool, error) {
	p, ctrl, err := v.mapCheck(key)
	if err != nil {
		return false, err
	}
	if ctrl == 0 {
		return false, nil
	}
	bucketCap := v.mapBucketCap(ctrl)
	if bucketCap == 0 {
		return false, nil
	}
	bucketsPtr := v.mapBucketsPtr(ctrl)
	kb := v.encodeMapKey(p, mapKey)
	idx := hashKeyBytes(kb) % bucketCap
	keySize := v.mapKeySize(p)

	cur := v.mapBucketHead(bucketsPtr, bucketCap, idx)
	var prev uint32
	for cur != 0 {
		if string(v.entryKeyBytes(cur, p)[:keySize]) == string(kb) {
			next := v.entryNext(cur)
			if prev == 0 {
				v.setMapBucketHead(bucketsPtr, bucketCap, idx, next)
			} else {
				v.setEntryNext(prev, next)
			}
			if err := v.allocator.Free(cur); err != nil {
				return false, err
			}
			count := binary.LittleEndian.Uint32(v.buf[ctrl+mapOffCount : ctrl+mapOffCount+4])
			binary.LittleEndian.PutUint32(v.buf[ctrl+mapOffCount:ctrl+mapOffCount+4], count-1)
			return true, nil
		}
		prev = cur
		cur = v.entryNext(cur)
	}
	return false, nil
}

// MapIterate visits every entry in bucket-then-chain order. For a
// KindSet field, value is always 0.
func (v *View) MapIterate(key string, fn func(mapKey, value uint64)) error {
	p, ctrl, err := v.mapCheck(key)
	if err != nil {
		return err
	}
	if ctrl == 0 {
		return nil
	}
	bucketCap := v.mapBucketCap(ctrl)
	if bucketCap == 0 {
		return nil
	}
	bucketsPtr := v.mapBucketsPtr(ctrl)
	isSet := p.Info.Kind == schema.KindSet
	for i := uint32(0); i < bucketCap; i++ {
		cur := v.mapBucketHead(bucketsPtr, bucketCap, i)
		for cur != 0 {
			k := readUint(v.entryKeyBytes(cur, p), 0, p.Info.KeyType)
			var val uint64
			if !isSet {
				val = readUint(v.buf, v.entryValueOffset(cur, p), p.Info.ElementInfo.Primitive)
			}
			fn(k, val)
			cur = v.entryNext(cur)
		}
	}
	return nil
}

func (v *View) freeMapField(p *schema.PropertyLayout) error {
	ctrl := v.controlPtr(p)
	if ctrl == 0 {
		return nil
	}
	bucketCap := v.mapBucketCap(ctrl)
	bucketsPtr := v.mapBucketsPtr(ctrl)
	if bucketCap != 0 && bucketsPtr != 0 {
		for i := uint32(0); i < bucketCap; i++ {
			cur := v.mapBucketHead(bucketsPtr, bucketCap, i)
			for cur != 0 {
				next := v.entryNext(cur)
				if err := v.allocator.Free(cur); err != nil {
					return err
				}
				cur = next
			}
		}
		if err := v.allocator.Free(bucketsPtr); err != nil {
			return err
		}
	}
	if err := v.allocator.Free(ctrl); err != nil {
		return err
	}
	v.setControlPtr(p, 0)
	return nil
}
