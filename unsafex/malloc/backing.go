package malloc

import "unsafe"

// BackingAllocator is the slow, coarse allocator the small and generic
// allocators sit on top of -- typically the platform allocator, an mmap'd
// arena, or (see the backing package) a size-classed pool.
//
// Allocate returns a contiguous range of at least size bytes, or (nil, nil)
// on failure; end-begin must be >= size. Release returns a previously
// allocated range; begin must match exactly, end is advisory.
type BackingAllocator interface {
	Allocate(size int) (begin, end unsafe.Pointer)
	Release(begin, end unsafe.Pointer)
}
