package malloc

// node is a fixed-capacity array of BucketCount bucket cells plus a count of
// uninitialized cells. Nodes form a doubly linked list anchored at the small
// allocator's head node, which is held inline and never released.
//
// The node/Bucket bookkeeping structures themselves are ordinary
// garbage-collected Go values, not memory obtained from the backing
// allocator: only the byte range each bucket carves its slot region and
// bitmap out of comes from backing.Allocate. Casting raw backing memory into
// a *node would plant live Go pointers (prev/next, the header's bucket
// field) inside memory the garbage collector never scans -- sound in a C
// allocator, unsound here. The conservation guarantee in the design is about
// backing-allocator bytes, which this still tracks exactly: every byte a
// bucket holds is accounted for regardless of where the node struct lives.
type node struct {
	buckets     [BucketCount]Bucket
	freeBuckets int
	prev, next  *node
}

func newNode(prev *node) *node {
	return &node{freeBuckets: BucketCount, prev: prev}
}
