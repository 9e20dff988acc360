package allocator

import "github.com/heapforge/segheap/internal/heap"

// Placer splits a chosen free block to satisfy a request, marking the
// front portion allocated and reinserting any worthwhile remainder.
type Placer struct {
	Layout BlockLayout
	Free   FreeListIndex
	Buddy  bool
}

// Place removes bp from its free list and carves out requested bytes,
// returning the now-allocated block pointer (always bp itself — boundary
// tag designs never move the front of a split, and the buddy design's
// repeated-halving also keeps the left half at bp).
//
// Precondition: bp is currently on a free list and requested <=
// size_of(header(bp)).
func (p Placer) Place(bp heap.Addr, requested uint32) heap.Addr {
	p.Free.Remove(bp)

	if p.Buddy {
		return p.placeBuddy(bp, requested)
	}

	return p.placeBoundaryTag(bp, requested)
}

func (p Placer) placeBoundaryTag(bp heap.Addr, requested uint32) heap.Addr {
	chunkSize := p.Layout.sizeAt(bp)
	remainder := chunkSize - requested

	if remainder >= minBlockSize {
		p.Layout.writeBoundaryTag(bp, requested, 1)

		rest := p.Layout.NextBlock(bp)
		p.Layout.writeBoundaryTag(rest, remainder, 0)
		p.Free.Insert(rest)

		return bp
	}

	// Remainder too small to stand alone: the whole block becomes
	// allocated, and the slack is internal fragmentation.
	p.Layout.writeBoundaryTag(bp, chunkSize, 1)

	return bp
}

func (p Placer) placeBuddy(bp heap.Addr, requested uint32) heap.Addr {
	chunkSize := p.Layout.sizeAt(bp)

	for chunkSize > requested {
		chunkSize /= 2
		right := bp + heap.Addr(chunkSize)
		p.Layout.writeHeaderOnly(right, chunkSize, 0)
		p.Free.Insert(right)
	}

	p.Layout.writeHeaderOnly(bp, chunkSize, 1)

	return bp
}
