package malloc

import "unsafe"

// GenericAllocator is the top-level facade: it routes requests above
// largeThreshold to the backing allocator directly (remembered in a set of
// pointers), everything else to the small allocator. It owns both.
type GenericAllocator struct {
	small          *SmallAllocator
	backing        BackingAllocator
	largeThreshold int
	largeSet       map[unsafe.Pointer]unsafe.Pointer // begin -> end, end kept only for Close's teardown
	invariant      InvariantLevel
}

// NewGenericAllocator builds a facade over the given backing allocator, with
// DefaultLargeThreshold and InvariantConstant checking unless overridden by
// opts.
func NewGenericAllocator(backing BackingAllocator, opts ...Option) *GenericAllocator {
	g := &GenericAllocator{
		backing:        backing,
		largeThreshold: DefaultLargeThreshold,
		largeSet:       make(map[unsafe.Pointer]unsafe.Pointer),
		invariant:      InvariantConstant,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.small = newSmallAllocator(backing, g.invariant)
	return g
}

// Alloc routes size to the backing allocator (recording the pointer in the
// large set) when it exceeds largeThreshold, otherwise to the small
// allocator. The returned range is documented A-aligned at both ends on the
// small path.
func (g *GenericAllocator) Alloc(size int) Range {
	if size > g.largeThreshold {
		begin, end := g.backing.Allocate(size)
		if begin == nil {
			panic(newOOM("backing allocator exhausted servicing a large request"))
		}
		g.largeSet[begin] = end
		return Range{Begin: begin, End: end}
	}
	return g.small.Allocate(size)
}

// Dealloc erases r.Begin from the large set and releases it via the backing
// allocator (using the caller-supplied r.End, per the large path's
// requirements) if present; otherwise it delegates to the small allocator,
// which ignores r.End and recomputes the true range from the header.
func (g *GenericAllocator) Dealloc(r Range) {
	if _, ok := g.largeSet[r.Begin]; ok {
		delete(g.largeSet, r.Begin)
		g.backing.Release(r.Begin, r.End)
		return
	}
	g.small.Dealloc(r.Begin)
}

// Close releases every live bucket, unlinks and frees every non-head node,
// and empties the large set back to the backing allocator. Calling it while
// user allocations are still live is undefined, matching the resource model.
func (g *GenericAllocator) Close() error {
	g.small.close()
	for begin, end := range g.largeSet {
		g.backing.Release(begin, end)
		delete(g.largeSet, begin)
	}
	return nil
}
