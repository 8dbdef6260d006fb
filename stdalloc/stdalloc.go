// Package stdalloc shims unsafex/malloc.GenericAllocator into the shape
// Go's generic standard containers (and anything else written against the
// allocator-aware container convention) expect: an Allocate/Deallocate pair
// over typed slices instead of raw byte ranges.
package stdalloc

import (
	"unsafe"

	"github.com/smalloc-go/smalloc/internal/hack"
	"github.com/smalloc-go/smalloc/unsafex/malloc"
)

// Allocator[T] wraps a *malloc.GenericAllocator, sizing every request in
// units of T instead of bytes.
type Allocator[T any] struct {
	g *malloc.GenericAllocator
}

// New wraps an existing GenericAllocator. The allocator's lifetime remains
// the caller's responsibility; New neither owns nor closes it.
func New[T any](g *malloc.GenericAllocator) Allocator[T] {
	return Allocator[T]{g: g}
}

// Allocate returns a []T of length n backed by a.g, uninitialized (zeroed
// only to the extent the underlying bucket or backing allocator zeroes
// fresh memory).
func (a Allocator[T]) Allocate(n int) []T {
	if n <= 0 {
		return nil
	}
	var zero T
	r := a.g.Alloc(n * int(unsafe.Sizeof(zero)))
	return hack.PointerToSlice[T](r.Begin, n)
}

// Deallocate returns a slice previously obtained from Allocate. The slice
// must still have its original length: End is computed as Begin plus
// len(s) elements. The small path ignores End and recomputes the range from
// the header; the large path passes End on to the backing allocator's
// Release.
func (a Allocator[T]) Deallocate(s []T) {
	if len(s) == 0 {
		return
	}
	begin := unsafe.Pointer(&s[0])
	end := unsafe.Add(begin, len(s)*int(unsafe.Sizeof(s[0])))
	a.g.Dealloc(malloc.Range{Begin: begin, End: end})
}

// Equal reports whether two allocators are interchangeable for container
// purposes. Every Allocator[T] shim is interchangeable with every other
// regardless of which GenericAllocator backs it -- containers only use
// Equal to decide whether two instances can share ownership bookkeeping,
// never to pick a specific allocator, so this always reports true.
func (a Allocator[T]) Equal(Allocator[T]) bool {
	return true
}

var (
	globalG    *malloc.GenericAllocator
	globalInit bool
)

// Global returns the process-wide Allocator[T], sharing a single
// GenericAllocator across every instantiation. Callers must Init before
// first use and Teardown when the global allocator is no longer needed;
// calling it outside that window panics rather than handing back an
// allocator wrapping a nil GenericAllocator.
func Global[T any]() Allocator[T] {
	if !globalInit {
		panic("stdalloc: Global called outside an Init/Teardown window")
	}
	return Allocator[T]{g: globalG}
}

// Init opens the process-global allocator window backing Global[T]. Calling
// it twice without an intervening Teardown panics, matching the narrow
// init/teardown contract of a process-wide resource.
func Init(backing malloc.BackingAllocator, opts ...malloc.Option) {
	if globalInit {
		panic("stdalloc: Init called while already initialized")
	}
	globalG = malloc.NewGenericAllocator(backing, opts...)
	globalInit = true
}

// Teardown closes the process-global allocator, releasing every bucket and
// node it still holds. Using any Global[T] allocator obtained before
// Teardown is undefined afterward.
func Teardown() error {
	if !globalInit {
		return nil
	}
	err := globalG.Close()
	globalG = nil
	globalInit = false
	return err
}
