package malloc

import (
	"unsafe"

	"github.com/smalloc-go/smalloc/unsafex"
)

// Bytes reinterprets r as a []byte without copying. The slice is only valid
// for as long as r has not been passed to Dealloc.
func (r Range) Bytes() []byte {
	n := int(uintptr(r.End) - uintptr(r.Begin))
	return unsafe.Slice((*byte)(r.Begin), n)
}

// StringView returns a zero-copy string view over r's bytes, for a caller
// that wants to read allocator-backed memory as a string without the usual
// []byte-to-string copy. The returned string is only valid for as long as r
// has not been passed to Dealloc; mutating the underlying bytes afterward
// (or freeing them) invalidates it, same caveat unsafex.BinaryToString
// itself carries.
func (r Range) StringView() string {
	return unsafex.BinaryToString(r.Bytes())
}
