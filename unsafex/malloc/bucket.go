package malloc

import (
	"unsafe"

	"github.com/smalloc-go/smalloc/hash/xfnv"
)

// bucketMagic is the canonical magic_number value written into every live
// Bucket and checked under InvariantConstant/InvariantFull to detect
// overwrite corruption. Derived from a hash instead of a literal so the
// constant isn't something a stray write is likely to reproduce by chance.
var bucketMagic = uint32(xfnv.HashStr("smalloc.bucket.magic"))

// Range is a [Begin, End) byte range, the common currency between the
// backing allocator, buckets, and the generic allocator facade.
type Range struct {
	Begin, End unsafe.Pointer
}

// Bucket is one contiguous region obtained from the backing allocator,
// partitioned into AlignmentA-byte slots with an embedded bitmap free list.
type Bucket struct {
	begin, end      unsafe.Pointer
	beginOfMemory   unsafe.Pointer
	beginOfFreeList unsafe.Pointer
	endOfFreeList   unsafe.Pointer
	freeElements    int
	totalSlots      int
	container       *node
	initialized     bool
	magic           uint32
}

func alignUp(p unsafe.Pointer, a uintptr) unsafe.Pointer {
	u := (uintptr(p) + a - 1) &^ (a - 1)
	return unsafe.Pointer(u)
}

func alignDown(p unsafe.Pointer, a uintptr) unsafe.Pointer {
	u := uintptr(p) &^ (a - 1)
	return unsafe.Pointer(u)
}

// newBucket rounds [begin, end) inward to AlignmentA, partitions the
// resulting span into a slot region and a bitmap sized so that exactly one
// bit covers each slot (size rounded down to a multiple of A*8+1), zero-fills
// the whole thing, and returns an initialized Bucket owned by owner.
func newBucket(begin, end unsafe.Pointer, owner *node) Bucket {
	beginAligned := alignUp(begin, AlignmentA)
	endAligned := alignDown(end, AlignmentA)
	size := int(uintptr(endAligned) - uintptr(beginAligned))

	unit := AlignmentA*8 + 1
	k := size / unit
	bitmapBytes := k
	slotBytes := k * AlignmentA * 8
	totalSlots := k * 8

	beginOfFreeList := unsafe.Add(beginAligned, slotBytes)
	endOfFreeList := unsafe.Add(beginOfFreeList, bitmapBytes)

	zeroRange(beginAligned, slotBytes+bitmapBytes)

	return Bucket{
		begin:           begin,
		end:             end,
		beginOfMemory:   beginAligned,
		beginOfFreeList: beginOfFreeList,
		endOfFreeList:   endOfFreeList,
		freeElements:    totalSlots,
		totalSlots:      totalSlots,
		container:       owner,
		initialized:     true,
		magic:           bucketMagic,
	}
}

func zeroRange(p unsafe.Pointer, n int) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = 0
	}
}

// checkCorruption validates magic_number and the bound invariants
// (begin <= begin_of_memory <= begin_of_free_list <= end_of_free_list <=
// end), plus a full bitmap recount under InvariantFull. Panics on failure;
// a no-op under InvariantNone.
func (b *Bucket) checkCorruption(lvl InvariantLevel) {
	if lvl == InvariantNone {
		return
	}
	if b.magic != bucketMagic {
		panic(newCorruption("bucket magic_number mismatch"))
	}
	if !(uintptr(b.begin) <= uintptr(b.beginOfMemory) &&
		uintptr(b.beginOfMemory) <= uintptr(b.beginOfFreeList) &&
		uintptr(b.beginOfFreeList) <= uintptr(b.endOfFreeList) &&
		uintptr(b.endOfFreeList) <= uintptr(b.end)) {
		panic(newCorruption("bucket bound invariant violated"))
	}
	if lvl == InvariantFull {
		if countFreeSlots(b.beginOfFreeList, b.totalSlots) != b.freeElements {
			panic(newCorruption("bucket free_elements does not match bitmap"))
		}
	}
}

// tryAlloc finds the smallest-index contiguous run of zero bits able to
// satisfy size (rounded up to AlignmentA) via first-fit, marks it occupied,
// and returns the backing range. Returns ok=false (never an error) when the
// bucket simply cannot fit the request.
func (b *Bucket) tryAlloc(size int, lvl InvariantLevel) (Range, bool) {
	b.checkCorruption(lvl)

	need := roundUp(size, AlignmentA)
	slots := need / AlignmentA
	if need > b.freeElements*AlignmentA {
		return Range{}, false
	}

	start, ok := firstFit(b.beginOfFreeList, b.totalSlots, b.freeElements, slots)
	if !ok {
		return Range{}, false
	}

	markRange(b.beginOfFreeList, start, start+slots, true)
	b.freeElements -= slots

	p := unsafe.Add(b.beginOfMemory, start*AlignmentA)
	return Range{Begin: p, End: unsafe.Add(p, need)}, true
}

// dealloc clears the bits covering r and returns whether the bucket is now
// fully free. Under invariant checking it first verifies alignment,
// containment in the slot region, and the magic number.
func (b *Bucket) dealloc(r Range, lvl InvariantLevel) DeallocStatus {
	off := int(uintptr(r.Begin) - uintptr(b.beginOfMemory))
	size := int(uintptr(r.End) - uintptr(r.Begin))

	if lvl != InvariantNone {
		slotRegionLen := int(uintptr(b.beginOfFreeList) - uintptr(b.beginOfMemory))
		if off < 0 || off+size > slotRegionLen {
			return StatusNotInRange
		}
		if off%AlignmentA != 0 {
			return StatusNotAligned
		}
		if b.magic != bucketMagic {
			return StatusCorrupted
		}
	}

	startSlot := off / AlignmentA
	slots := size / AlignmentA
	markRange(b.beginOfFreeList, startSlot, startSlot+slots, false)
	b.freeElements += slots

	if b.freeElements == b.totalSlots {
		return StatusSuccessNowEmpty
	}
	return StatusSuccess
}

// destroy marks the bucket uninitialized. It does not release backing
// memory; the small allocator does that once it owns the decision to shrink.
func (b *Bucket) destroy() {
	b.initialized = false
}
