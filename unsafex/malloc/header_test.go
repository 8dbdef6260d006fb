package malloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	b := newTestBucket(AlignmentA * 16)
	p := arena(AlignmentA * 2)

	writeHeader(p, AlignmentA*2, &b)
	size, got := readHeader(p)
	require.Equal(t, uint64(AlignmentA*2), size)
	require.Same(t, &b, got)
}

func TestPackAllocPrependsHeader(t *testing.T) {
	b := newTestBucket(AlignmentA * 16)
	r, ok := packAlloc(&b, AlignmentA, InvariantConstant)
	require.True(t, ok)

	headerPtr := unsafe.Add(r.Begin, -AlignmentA)
	size, bucket := readHeader(headerPtr)
	require.Same(t, &b, bucket)
	require.Equal(t, uint64(uintptr(r.End)-uintptr(headerPtr)), size)
}

func TestUnpackDeallocRoutesToOwningBucket(t *testing.T) {
	b := newTestBucket(AlignmentA * 16)
	free0 := b.freeElements

	r, ok := packAlloc(&b, AlignmentA, InvariantConstant)
	require.True(t, ok)

	status, bucket := unpackDealloc(r.Begin, InvariantConstant)
	require.Equal(t, StatusSuccessNowEmpty, status)
	require.Same(t, &b, bucket)
	require.Equal(t, free0, b.freeElements)
}

func TestUnpackDeallocDetectsUninitializedBucket(t *testing.T) {
	b := newTestBucket(AlignmentA * 16)
	r, ok := packAlloc(&b, AlignmentA, InvariantConstant)
	require.True(t, ok)

	b.destroy()
	status, _ := unpackDealloc(r.Begin, InvariantConstant)
	require.Equal(t, StatusCorrupted, status)
}
