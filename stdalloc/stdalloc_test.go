package stdalloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/smalloc-go/smalloc/unsafex/malloc"
)

type fakeBacking struct{}

func (fakeBacking) Allocate(size int) (begin, end unsafe.Pointer) {
	buf := make([]byte, size)
	begin = unsafe.Pointer(&buf[0])
	return begin, unsafe.Add(begin, size)
}

func (fakeBacking) Release(begin, end unsafe.Pointer) {}

func TestAllocatorAllocateDeallocate(t *testing.T) {
	g := malloc.NewGenericAllocator(fakeBacking{})
	defer g.Close()

	a := New[int64](g)
	s := a.Allocate(10)
	require.Len(t, s, 10)

	for i := range s {
		s[i] = int64(i)
	}
	for i := range s {
		require.Equal(t, int64(i), s[i])
	}
	a.Deallocate(s)
}

func TestAllocatorEqualAlwaysTrue(t *testing.T) {
	g := malloc.NewGenericAllocator(fakeBacking{})
	defer g.Close()

	a := New[int64](g)
	b := New[int64](malloc.NewGenericAllocator(fakeBacking{}))
	require.True(t, a.Equal(b))
}

func TestGlobalInitTeardown(t *testing.T) {
	Init(fakeBacking{})
	defer Teardown()

	a := Global[byte]()
	s := a.Allocate(64)
	require.Len(t, s, 64)
	a.Deallocate(s)
}

func TestGlobalPanicsOutsideInitWindow(t *testing.T) {
	require.Panics(t, func() { Global[byte]() })

	Init(fakeBacking{})
	Teardown()
	require.Panics(t, func() { Global[byte]() })
}
