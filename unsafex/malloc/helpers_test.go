package malloc

import "unsafe"

// heapBacking is a BackingAllocator test double that carves regions out of
// the normal Go heap. unsafe.Pointer values keep their referents alive for
// as long as they're reachable, so this is safe to use without pinning.
type heapBacking struct {
	live map[unsafe.Pointer][]byte
}

func newHeapBacking() *heapBacking {
	return &heapBacking{live: make(map[unsafe.Pointer][]byte)}
}

func (h *heapBacking) Allocate(size int) (begin, end unsafe.Pointer) {
	if size <= 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	begin = unsafe.Pointer(&buf[0])
	end = unsafe.Add(begin, size)
	h.live[begin] = buf
	return begin, end
}

func (h *heapBacking) Release(begin, end unsafe.Pointer) {
	delete(h.live, begin)
}

func (h *heapBacking) liveBytes() int {
	n := 0
	for _, buf := range h.live {
		n += len(buf)
	}
	return n
}
