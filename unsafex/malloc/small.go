package malloc

import "unsafe"

// SmallAllocator orchestrates nodes and buckets for allocations routed
// through the small path: a rotating cursor picks the next bucket to try,
// growing (adding nodes/buckets) when nothing existing can satisfy a
// request, and shrinking (releasing buckets and unlinking emptied non-head
// nodes) once a bucket goes fully free.
type SmallAllocator struct {
	head      node
	backing   BackingAllocator
	cur       cursor
	invariant InvariantLevel
}

func newSmallAllocator(backing BackingAllocator, lvl InvariantLevel) *SmallAllocator {
	s := &SmallAllocator{backing: backing, invariant: lvl}
	s.head.freeBuckets = BucketCount
	s.cur = cursor{node: &s.head, index: 0}
	return s
}

// Allocate serves size bytes from the cursor's bucket, advancing the
// cursor bucket by bucket (through the current node, on to the next, and
// back to head) on each miss. After itBudget failed attempts it grows a
// fresh bucket and serves the request from there, raising out-of-memory
// only if even that fails; buckets beyond those itBudget attempts are not
// tried first.
func (s *SmallAllocator) Allocate(size int) Range {
	budget := itBudget
	for {
		b := s.cur.bucketPtr()
		if b.initialized {
			if r, ok := packAlloc(b, size, s.invariant); ok {
				return r
			}
		}

		budget--
		if budget <= 0 {
			fresh := s.grow(size)
			r, ok := packAlloc(fresh, size, s.invariant)
			if !ok {
				panic(newOOM("freshly grown bucket could not satisfy the request"))
			}
			return r
		}
		s.advance()
	}
}

// advance moves the cursor to the next bucket in the current node, to the
// next node when the current one is exhausted, and wraps to head when no
// next node exists.
func (s *SmallAllocator) advance() {
	s.cur.node, s.cur.index = s.nextCell(s.cur.node, s.cur.index)
}

// nextCell computes the (node, index) that follows (n, idx) under the same
// wrap-to-head rule advance() uses, without mutating the cursor. Shared by
// advance and grow's exhaustive search for an uninitialized cell.
func (s *SmallAllocator) nextCell(n *node, idx int) (*node, int) {
	idx++
	if idx < BucketCount {
		return n, idx
	}
	if n.next != nil {
		return n.next, 0
	}
	return &s.head, 0
}

// requestedCapacity returns the byte size to ask the backing allocator for
// when growing: max(minimal*1.2, A*50) + 3*A, inflated again by 1.2x to
// cover header overhead and alignment slack.
func requestedCapacity(minimal int) int {
	want := float64(minimal) * growFactor
	if want < float64(growMinFloor) {
		want = float64(growMinFloor)
	}
	want += float64(growPadding)
	want *= growFactor
	return int(want)
}

// grow searches from the cursor for the first uninitialized bucket cell
// across every linked node, constructs a bucket there, and returns it. If no
// uninitialized cell exists anywhere, it appends a fresh node to the tail
// and uses its first cell.
func (s *SmallAllocator) grow(minimal int) *Bucket {
	capacity := requestedCapacity(minimal + AlignmentA)

	startNode, startIdx := s.cur.node, s.cur.index
	n, idx := startNode, startIdx
	for {
		if !n.buckets[idx].initialized {
			begin, end := s.backing.Allocate(capacity)
			if begin == nil {
				panic(newOOM("backing allocator exhausted while growing a bucket"))
			}
			n.buckets[idx] = newBucket(begin, end, n)
			n.freeBuckets--
			s.cur.node, s.cur.index = n, idx
			return &n.buckets[idx]
		}
		n, idx = s.nextCell(n, idx)
		if n == startNode && idx == startIdx {
			break // full cycle: no uninitialized cell anywhere
		}
	}

	tail := &s.head
	for tail.next != nil {
		tail = tail.next
	}
	fresh := newNode(tail)
	tail.next = fresh

	begin, end := s.backing.Allocate(capacity)
	if begin == nil {
		panic(newOOM("backing allocator exhausted while growing a bucket"))
	}
	fresh.buckets[0] = newBucket(begin, end, fresh)
	fresh.freeBuckets--
	s.cur.node, s.cur.index = fresh, 0
	return &fresh.buckets[0]
}

// Dealloc unpacks the header behind u, forwards the freed range to the
// owning bucket, and shrinks the allocator if that bucket is now empty. Any
// error status under invariant checking is fatal: the allocator cannot
// recover from a misused or corrupted small pointer.
func (s *SmallAllocator) Dealloc(u unsafe.Pointer) {
	status, b := unpackDealloc(u, s.invariant)
	switch status {
	case StatusSuccess:
	case StatusSuccessNowEmpty:
		s.shrink(b)
	default:
		if s.invariant != InvariantNone {
			panic(newCorruption("dealloc of an invalid small pointer: " + status.String()))
		}
	}
}

// shrink releases an emptied bucket's backing memory and, if that leaves
// every bucket in its node free and the node isn't head, unlinks the node
// and relocates the cursor if it pointed inside it. Under InvariantFull it
// recounts the node's uninitialized cells against freeBuckets first.
func (s *SmallAllocator) shrink(b *Bucket) {
	s.backing.Release(b.begin, b.end)
	b.destroy()

	n := b.container
	n.freeBuckets++
	if s.invariant == InvariantFull {
		free := 0
		for i := range n.buckets {
			if !n.buckets[i].initialized {
				free++
			}
		}
		if free != n.freeBuckets {
			panic(newCorruption("node free_buckets does not match its uninitialized cells"))
		}
	}
	if n.freeBuckets != BucketCount || n == &s.head {
		return
	}

	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.cur.node == n {
		s.cur.node = n.prev
		s.cur.index = BucketCount - 1
	}
}

// close releases every live bucket back to the backing allocator and resets
// the node list to just the empty head, used by GenericAllocator.Close.
func (s *SmallAllocator) close() {
	for n := &s.head; n != nil; {
		next := n.next
		for i := range n.buckets {
			b := &n.buckets[i]
			if b.initialized {
				s.backing.Release(b.begin, b.end)
				b.destroy()
			}
		}
		n = next
	}
	s.head.next = nil
	s.head.freeBuckets = BucketCount
	s.cur = cursor{node: &s.head, index: 0}
}
