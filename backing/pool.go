// Package backing provides BackingAllocator implementations for
// unsafex/malloc.GenericAllocator: a size-classed sync.Pool arena
// (PoolAllocator) and a thin adapter over bytedance/gopkg's mcache
// (MCacheAllocator).
package backing

import (
	"math/bits"
	"sync"
	"unsafe"
)

type sizeClass struct {
	sync.Pool
	size int
}

// minClassSize and maxClassSize bound the power-of-two size classes
// PoolAllocator serves, mirroring the range a generic small/large split
// actually asks a coarse allocator for.
const (
	minClassSize = 4 << 10
	maxClassSize = 128 << 30

	footerLen       = 8
	footerMagicMask = uint64(0xFFFFFFFFFFFFFFC0)
	footerIndexMask = uint64(0x000000000000003F)
	footerMagic     = uint64(0xBADC0DEBADC0DEC0)
)

// PoolAllocator satisfies malloc.BackingAllocator by handing out fixed-size,
// power-of-two classed buffers from a ladder of sync.Pools, the same scheme
// cache/mempool uses for []byte -- adapted here to the (begin, end)
// unsafe.Pointer pair contract instead of a slice. A magic-tagged footer
// past the usable region lets Release recover which pool a range came from
// without needing the caller to remember it.
type PoolAllocator struct {
	classes  []*sizeClass
	bits2idx [64]int
}

// NewPoolAllocator builds the size-class ladder from minClassSize up to
// maxClassSize, doubling each step.
func NewPoolAllocator() *PoolAllocator {
	p := &PoolAllocator{}
	i := 0
	for sz := minClassSize; sz <= maxClassSize; sz <<= 1 {
		size := sz
		c := &sizeClass{size: size}
		c.New = func() interface{} {
			buf := make([]byte, size)
			return unsafe.Pointer(&buf[0])
		}
		p.classes = append(p.classes, c)
		p.bits2idx[bits.Len(uint(size))] = i
		i++
	}
	return p
}

func (p *PoolAllocator) classIndex(need int) int {
	if need <= minClassSize {
		return 0
	}
	i := p.bits2idx[bits.Len(uint(need))]
	if uint(need)&(uint(need)-1) == 0 {
		return i
	}
	return i + 1
}

// Allocate returns a range of at least size usable bytes carved from the
// smallest size class that fits size+footerLen, with a magic-tagged footer
// written just past the usable region.
func (p *PoolAllocator) Allocate(size int) (begin, end unsafe.Pointer) {
	if size <= 0 {
		return nil, nil
	}
	need := size + footerLen
	idx := p.classIndex(need)
	if idx >= len(p.classes) {
		return nil, nil
	}
	class := p.classes[idx]
	base := class.Get().(unsafe.Pointer)

	usable := class.size - footerLen
	footerAt := unsafe.Add(base, usable)
	*(*uint64)(footerAt) = footerMagic | uint64(idx)

	return base, unsafe.Add(base, usable)
}

// Release puts a previously allocated range back into its size class after
// verifying the footer magic and recorded index, mirroring cache/mempool's
// defensive Free. Ranges not produced by this allocator, or already
// released, are silently ignored rather than corrupting an unrelated pool.
// The footer is looked up at end, so end is not advisory here: it must be
// the end Allocate returned, and a range passed with any other end fails
// the footer check and is ignored as well.
func (p *PoolAllocator) Release(begin, end unsafe.Pointer) {
	if begin == nil || end == nil {
		return
	}
	usable := int(uintptr(end) - uintptr(begin))
	footerAt := unsafe.Add(begin, usable)
	footer := *(*uint64)(footerAt)
	if footer&footerMagicMask != footerMagic {
		return
	}
	idx := int(footer & footerIndexMask)
	if idx < 0 || idx >= len(p.classes) {
		return
	}
	class := p.classes[idx]
	if class.size-footerLen != usable {
		return
	}
	class.Put(begin)
}
