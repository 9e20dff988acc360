package allocator

import (
	"github.com/heapforge/segheap/internal/errors"
	"github.com/heapforge/segheap/internal/heap"
)

// Stats summarizes a Heap's current memory usage. Every field is computed
// on demand by walking the block chain; Heap keeps no running totals
// beyond the allocate/free/grow counters, so Stats never drifts out of sync
// with the blocks actually on heap.
type Stats struct {
	HeapSize     uint32
	BytesInUse   uint32
	BytesFree    uint32
	BlocksInUse  uint32
	BlocksFree   uint32
	AllocCount   uint64
	FreeCount    uint64
	GrowCount    uint64
}

// Heap is the shared engine behind all three free-list designs. It owns
// the backend and the block chain; BlockLayout, FreeListIndex, Placer,
// Coalescer and Searcher supply everything that differs between designs.
// Callers never construct a Heap directly — use NewExplicit,
// NewSegregatedFit or NewBuddy.
type Heap struct {
	backend heap.Backend
	raw     heap.RawHeap
	layout  BlockLayout
	free    FreeListIndex
	place   Placer
	coal    Coalescer
	search  Searcher

	buddy     bool
	chunkSize uint32

	// payloadBase is the address of the very first real block this heap
	// will ever hold — fixed once Initialize returns, and the origin the
	// buddy design measures every offset/parity calculation from.
	payloadBase heap.Addr

	allocCount uint64
	freeCount  uint64
	growCount  uint64
}

// newHeap wires the shared pieces together; the per-design constructors
// (NewExplicit, NewSegregatedFit, NewBuddy) fill in free/place/coal/search
// and then call Initialize.
func newHeap(backend heap.Backend, buddy bool, chunkSize uint32) *Heap {
	raw := heap.RawHeap{Backend: backend}
	return &Heap{
		backend:   backend,
		raw:       raw,
		layout:    BlockLayout{Raw: raw},
		buddy:     buddy,
		chunkSize: chunkSize,
	}
}

// rootWords returns how many extra prologue words the active FreeListIndex
// needs for its root array (0 for the explicit design's single struct-held
// root, numSegregatedClasses for both segregated designs).
func (h *Heap) rootWords() uint32 {
	if _, ok := h.free.(*segregatedList); ok {
		return numSegregatedClasses
	}
	return 0
}

// Initialize lays down the prologue (preceded, for segregated designs, by
// the root array) and the epilogue sentinel, then performs the
// initial chunkSize growth: a fixed-size prologue "block" that is always
// allocated and never revisited, immediately followed by one epilogue
// header of size zero.
func (h *Heap) Initialize() error {
	roots := h.rootWords()
	total := roots*wsize + 3*wsize

	start, err := h.backend.Extend(total)
	if err != nil {
		return errors.OutOfMemory(total)
	}

	if sl, ok := h.free.(*segregatedList); ok {
		sl.rootsBase = start
		for i := 0; i < numSegregatedClasses; i++ {
			sl.setRoot(i, heap.NullAddr)
		}
	}

	prologueHeader := start + heap.Addr(roots*wsize)
	prologueBp := prologueHeader + wsize
	epilogueHeader := prologueBp + wsize

	h.raw.SetWord(prologueHeader, pack(dsize, 1))
	h.raw.SetWord(prologueBp, pack(dsize, 1)) // footer: size==dsize, so FooterOf(bp)==bp
	h.raw.SetWord(epilogueHeader, pack(0, 1))

	h.payloadBase = epilogueHeader + wsize
	h.coal.PayloadBase = h.payloadBase

	if _, err := h.grow(h.chunkSize); err != nil {
		return err
	}

	return nil
}

// grow extends the backend by at least bytes, converts the old epilogue
// sentinel into the new block's header, stamps a fresh epilogue past it,
// and coalesces the new block with whatever free block preceded it.
func (h *Heap) grow(bytes uint32) (heap.Addr, error) {
	var size uint32
	if h.buddy {
		size = nextPow2(bytes)
		if size < minBlockSize {
			size = minBlockSize
		}
	} else {
		size = alignUp(bytes, dsize)
		if size < minBlockSize {
			size = minBlockSize
		}
	}

	start, err := h.backend.Extend(size)
	if err != nil {
		return heap.NullAddr, errors.OutOfMemory(size)
	}

	bp := start // reuses the old epilogue header's slot as HeaderOf(bp)

	if h.buddy {
		h.layout.writeHeaderOnly(bp, size, 0)
	} else {
		h.layout.writeBoundaryTag(bp, size, 0)
	}

	newEpilogue := bp + heap.Addr(size) - wsize
	h.raw.SetWord(newEpilogue, pack(0, 1))

	h.growCount++

	return h.coal.Coalesce(bp), nil
}

// adjustedSize computes the block size (including header/footer overhead)
// needed to satisfy a payload request of the given size.
func (h *Heap) adjustedSize(size uint32) uint32 {
	if h.buddy {
		n := size + dsize
		if n < minBlockSize {
			n = minBlockSize
		}
		return nextPow2(n)
	}

	if size <= dsize {
		return minBlockSize
	}

	return alignUp(size+dsize, dsize)
}

// Allocate returns a block pointer with room for at least size bytes, or
// an error if the backend cannot grow to satisfy the request. Allocate(0)
// returns heap.NullAddr and no error, matching a request for no storage.
func (h *Heap) Allocate(size uint32) (heap.Addr, error) {
	if size == 0 {
		return heap.NullAddr, nil
	}

	asize := h.adjustedSize(size)

	bp := h.search.FindFit(asize)
	if bp == heap.NullAddr {
		growSize := asize
		if growSize < h.chunkSize {
			growSize = h.chunkSize
		}

		grown, err := h.grow(growSize)
		if err != nil {
			return heap.NullAddr, err
		}

		bp = h.search.FindFit(asize)
		if bp == heap.NullAddr {
			// Defensive: the grown block (after coalescing) is at least
			// asize bytes, so FindFit normally returns a block here; if it
			// does not, fall back to the grown block directly.
			bp = grown
		}
	}

	h.allocCount++

	result := h.place.Place(bp, asize)
	h.debugCheck("allocate")

	return result, nil
}

// Free returns bp's block to the free list, coalescing with any free
// neighbors. Freeing heap.NullAddr is a no-op.
func (h *Heap) Free(bp heap.Addr) {
	if bp == heap.NullAddr {
		return
	}

	h.debugValidateFree(bp)

	size := h.layout.sizeAt(bp)

	if h.buddy {
		h.layout.writeHeaderOnly(bp, size, 0)
	} else {
		h.layout.writeBoundaryTag(bp, size, 0)
	}

	h.freeCount++

	h.coal.Coalesce(bp)
	h.debugCheck("free")
}

// payloadCapacity returns how many payload bytes bp's current block can
// hold, net of header/footer overhead.
func (h *Heap) payloadCapacity(bp heap.Addr) uint32 {
	size := h.layout.sizeAt(bp)
	if h.buddy {
		return size - wsize
	}

	return size - dsize
}

// Reallocate resizes the block at bp to hold size bytes, preserving its
// contents up to min(old payload, size). Reallocate(NullAddr, size)
// behaves as Allocate(size); Reallocate(bp, 0) behaves as Free(bp) and
// returns heap.NullAddr.
func (h *Heap) Reallocate(bp heap.Addr, size uint32) (heap.Addr, error) {
	if bp == heap.NullAddr {
		return h.Allocate(size)
	}

	if size == 0 {
		h.Free(bp)
		return heap.NullAddr, nil
	}

	var (
		result heap.Addr
		err    error
	)

	if h.buddy {
		result, err = h.reallocateBuddy(bp, size)
	} else {
		result, err = h.reallocateBoundaryTag(bp, size)
	}

	if err == nil {
		h.debugCheck("reallocate")
	}

	return result, err
}

// reallocateBoundaryTag tries an in-place shortcut first: if the
// immediately following block is free and the combined size covers the
// request, absorb it without splitting the remainder (accepting the
// resulting internal fragmentation). Otherwise falls back to
// allocate+copy+free.
func (h *Heap) reallocateBoundaryTag(bp heap.Addr, size uint32) (heap.Addr, error) {
	asize := h.adjustedSize(size)
	current := h.layout.sizeAt(bp)

	if asize <= current {
		return bp, nil
	}

	next := h.layout.NextBlock(bp)
	if !h.layout.allocAt(next) {
		combined := current + h.layout.sizeAt(next)
		if combined >= asize {
			h.free.Remove(next)
			h.layout.writeBoundaryTag(bp, combined, 1)
			return bp, nil
		}
	}

	newBp, err := h.Allocate(size)
	if err != nil {
		return heap.NullAddr, err
	}

	h.copyPayload(newBp, bp, min32(h.payloadCapacity(bp), size))
	h.Free(bp)

	return newBp, nil
}

// reallocateBuddy has no absorb-a-neighbor shortcut — buddies only merge
// when both halves are entirely free — but a block's power-of-two size
// already overshoots most requests, so it first checks whether bp's
// current size already covers the request before paying for a fresh
// allocate+copy+free.
func (h *Heap) reallocateBuddy(bp heap.Addr, size uint32) (heap.Addr, error) {
	need := alignUp(size+dsize, dsize)
	have := h.layout.sizeAt(bp)

	if need <= have {
		return bp, nil
	}

	oldCapacity := h.payloadCapacity(bp)

	newBp, err := h.Allocate(size)
	if err != nil {
		return heap.NullAddr, err
	}

	h.copyPayload(newBp, bp, min32(oldCapacity, size))
	h.Free(bp)

	return newBp, nil
}

func (h *Heap) copyPayload(dst, src heap.Addr, n uint32) {
	if n == 0 {
		return
	}

	copy(h.backend.Slice(dst, n), h.backend.Slice(src, n))
}

// Stats walks the block chain from the first real block to the current
// break, tallying allocated and free bytes.
func (h *Heap) Stats() Stats {
	s := Stats{
		HeapSize:   uint32(h.backend.Break() - h.payloadBase),
		AllocCount: h.allocCount,
		FreeCount:  h.freeCount,
		GrowCount:  h.growCount,
	}

	brk := h.backend.Break()
	for bp := h.payloadBase; bp < brk; bp = h.layout.NextBlock(bp) {
		size := h.layout.sizeAt(bp)
		if size == 0 {
			break // epilogue sentinel
		}

		if h.layout.allocAt(bp) {
			s.BytesInUse += size
			s.BlocksInUse++
		} else {
			s.BytesFree += size
			s.BlocksFree++
		}
	}

	return s
}

func nextPow2(n uint32) uint32 {
	if n == 0 {
		return 1
	}

	p := uint32(1)
	for p < n {
		p <<= 1
	}

	return p
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
