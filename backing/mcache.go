package backing

import (
	"sync"
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"
)

// MCacheAllocator adapts bytedance/gopkg/lang/mcache's size-classed
// []byte pool to the (begin, end) unsafe.Pointer contract. mcache.Free
// needs the exact []byte mcache.Malloc returned (it keys its pool ladder
// off cap(buf)), so this keeps the live slices around, addressed by their
// data pointer, rather than reconstructing a slice header from begin/end
// at Release time.
type MCacheAllocator struct {
	mu   sync.Mutex
	live map[unsafe.Pointer][]byte
}

func NewMCacheAllocator() *MCacheAllocator {
	return &MCacheAllocator{live: make(map[unsafe.Pointer][]byte)}
}

func (m *MCacheAllocator) Allocate(size int) (begin, end unsafe.Pointer) {
	if size <= 0 {
		return nil, nil
	}
	buf := mcache.Malloc(size)
	begin = unsafe.Pointer(&buf[0])
	end = unsafe.Add(begin, len(buf))

	m.mu.Lock()
	m.live[begin] = buf
	m.mu.Unlock()
	return begin, end
}

func (m *MCacheAllocator) Release(begin, end unsafe.Pointer) {
	m.mu.Lock()
	buf, ok := m.live[begin]
	if ok {
		delete(m.live, begin)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	mcache.Free(buf)
}
