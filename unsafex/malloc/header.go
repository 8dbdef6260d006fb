package malloc

import "unsafe"

// header occupies the first slot of every small allocation. size is the
// total byte length of the underlying bucket allocation, header slot
// included; bucket is the owning bucket, used to route deallocation in O(1).
type header struct {
	size   uint64
	bucket *Bucket
}

func writeHeader(p unsafe.Pointer, size uint64, b *Bucket) {
	h := (*header)(p)
	h.size = size
	h.bucket = b
}

func readHeader(p unsafe.Pointer) (uint64, *Bucket) {
	h := (*header)(p)
	return h.size, h.bucket
}

// packAlloc requests size+AlignmentA bytes from b, writes the header into
// the first slot of whatever tryAlloc returns, and hands back the
// user-visible range starting one slot in.
func packAlloc(b *Bucket, size int, lvl InvariantLevel) (Range, bool) {
	r, ok := b.tryAlloc(size+AlignmentA, lvl)
	if !ok {
		return Range{}, false
	}
	writeHeader(r.Begin, uint64(uintptr(r.End)-uintptr(r.Begin)), b)
	return Range{Begin: unsafe.Add(r.Begin, AlignmentA), End: r.End}, true
}

// unpackDealloc reads the header one slot behind u and forwards the freed
// range to its owning bucket.
func unpackDealloc(u unsafe.Pointer, lvl InvariantLevel) (DeallocStatus, *Bucket) {
	headerPtr := unsafe.Add(u, -AlignmentA)
	size, b := readHeader(headerPtr)
	if b == nil || !b.initialized {
		return StatusCorrupted, b
	}
	status := b.dealloc(Range{Begin: headerPtr, End: unsafe.Add(headerPtr, int(size))}, lvl)
	return status, b
}
