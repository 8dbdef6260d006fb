// Package bench benchmarks GenericAllocator against its own backing
// allocators in isolation, to make the cost the small/large split adds on
// top of a coarse allocator visible.
package bench

import (
	"testing"

	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/smalloc-go/smalloc/backing"
	"github.com/smalloc-go/smalloc/unsafex/malloc"
)

func BenchmarkGenericAllocatorSmall(b *testing.B) {
	g := malloc.NewGenericAllocator(backing.NewPoolAllocator())
	defer g.Close()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r := g.Alloc(128)
		g.Dealloc(r)
	}
}

func BenchmarkGenericAllocatorLarge(b *testing.B) {
	g := malloc.NewGenericAllocator(backing.NewPoolAllocator())
	defer g.Close()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r := g.Alloc(64 << 10)
		g.Dealloc(r)
	}
}

func BenchmarkPoolAllocatorDirect(b *testing.B) {
	p := backing.NewPoolAllocator()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		begin, end := p.Allocate(128)
		p.Release(begin, end)
	}
}

func BenchmarkMCacheDirect(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf := mcache.Malloc(128)
		mcache.Free(buf)
	}
}

func BenchmarkGenericAllocatorMixedSizes(b *testing.B) {
	g := malloc.NewGenericAllocator(backing.NewPoolAllocator())
	defer g.Close()

	sizes := []int{16, 64, 512, 4000, 40000}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r := g.Alloc(sizes[i%len(sizes)])
		g.Dealloc(r)
	}
}

func BenchmarkMCacheAllocatorBacking(b *testing.B) {
	g := malloc.NewGenericAllocator(backing.NewMCacheAllocator())
	defer g.Close()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r := g.Alloc(256)
		g.Dealloc(r)
	}
}
