package allocator

import "github.com/heapforge/segheap/internal/heap"

// Coalescer merges a newly-freed block with its free neighbors. The
// boundary-tag designs (explicit, segregated-fit) walk backward via the
// preceding block's footer and forward via the next header; the buddy
// design instead recursively merges bp with its address-derived buddy.
type Coalescer struct {
	Layout BlockLayout
	Free   FreeListIndex
	Buddy  bool

	// PayloadBase is the address of the first block after the prologue —
	// the buddy design's "root" for deriving a block's buddy from its
	// offset into the payload region.
	PayloadBase heap.Addr
}

// Coalesce merges bp with any free neighbors and (re)inserts the result
// into the free list, returning the resulting block pointer.
func (c Coalescer) Coalesce(bp heap.Addr) heap.Addr {
	if c.Buddy {
		return c.coalesceBuddy(bp)
	}

	return c.coalesceBoundaryTag(bp)
}

func (c Coalescer) coalesceBoundaryTag(bp heap.Addr) heap.Addr {
	prevBp := c.Layout.PrevBlock(bp)
	nextBp := c.Layout.NextBlock(bp)

	prevFree := !c.Layout.allocAt(prevBp)
	nextFree := !c.Layout.allocAt(nextBp)

	size := c.Layout.sizeAt(bp)

	switch {
	case !prevFree && !nextFree: // Case 1: both neighbors allocated.
		c.Free.Insert(bp)
		return bp

	case !prevFree && nextFree: // Case 2: merge with next.
		c.Free.Remove(nextBp)
		size += c.Layout.sizeAt(nextBp)
		c.Layout.writeBoundaryTag(bp, size, 0)

	case prevFree && !nextFree: // Case 3: merge with prev.
		c.Free.Remove(prevBp)
		size += c.Layout.sizeAt(prevBp)
		c.Layout.writeBoundaryTag(prevBp, size, 0)
		bp = prevBp

	default: // Case 4: merge with both.
		c.Free.Remove(prevBp)
		c.Free.Remove(nextBp)
		size += c.Layout.sizeAt(prevBp) + c.Layout.sizeAt(nextBp)
		c.Layout.writeBoundaryTag(prevBp, size, 0)
		bp = prevBp
	}

	c.Free.Insert(bp)

	return bp
}

// coalesceBuddy inserts bp then repeatedly merges it with its buddy for
// as long as the buddy is free and exactly bp's current size (i.e. not
// itself further split).
func (c Coalescer) coalesceBuddy(bp heap.Addr) heap.Addr {
	c.Free.Insert(bp)

	for {
		size := c.Layout.sizeAt(bp)
		offset := uint32(bp - c.PayloadBase)

		var left, right heap.Addr
		if offset&size != 0 {
			left, right = bp-heap.Addr(size), bp
		} else {
			left, right = bp, bp+heap.Addr(size)
		}

		if left == right { // Defensive: never merge a block with itself.
			return bp
		}

		if c.Layout.allocAt(left) || c.Layout.allocAt(right) {
			return bp
		}

		if c.Layout.sizeAt(left) != size || c.Layout.sizeAt(right) != size {
			return bp
		}

		c.Free.Remove(left)
		c.Free.Remove(right)

		size *= 2
		c.Layout.writeHeaderOnly(left, size, 0)
		c.Free.Insert(left)

		bp = left
	}
}
