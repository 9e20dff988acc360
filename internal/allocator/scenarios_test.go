package allocator

import (
	"testing"

	"github.com/heapforge/segheap/internal/heap"
)

func mustHeap(t *testing.T, h *Heap, err error) *Heap {
	t.Helper()
	if err != nil {
		t.Fatalf("construct heap: %v", err)
	}
	return h
}

func headerWord(t *testing.T, h *Heap, bp heap.Addr) (size uint32, alloc bool) {
	t.Helper()
	return h.layout.sizeAt(bp), h.layout.allocAt(bp)
}

// S1: after initialize, allocate(1) splits the initial 4096-byte chunk
// into a 16-byte allocated block and a 4080-byte free remainder, with the
// break (the end of the epilogue header) exactly one chunk past the
// payload base.
func TestScenarioSplitAndPlace(t *testing.T) {
	h := mustHeap(t, NewExplicit(nil, WithChunkSize(4096)))

	p, err := h.Allocate(1)
	if err != nil {
		t.Fatalf("allocate(1): %v", err)
	}

	size, alloc := headerWord(t, h, p)
	if size != 16 || !alloc {
		t.Fatalf("allocated block: got size=%d alloc=%v, want size=16 alloc=true", size, alloc)
	}

	rest := h.layout.NextBlock(p)
	restSize, restAlloc := headerWord(t, h, rest)
	if restSize != 4080 || restAlloc {
		t.Fatalf("remainder block: got size=%d alloc=%v, want size=4080 alloc=false", restSize, restAlloc)
	}

	if got := uint32(h.backend.Break() - h.payloadBase); got != 4096 {
		t.Fatalf("break offset from payload base: got %d, want 4096", got)
	}

	if err := h.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

// S2: allocate three blocks, free them out of address order, and end up
// with the whole chunk merged back into a single free block.
func TestScenarioCoalesceBothSides(t *testing.T) {
	h := mustHeap(t, NewExplicit(nil, WithChunkSize(4096)))

	a, err := h.Allocate(100)
	if err != nil {
		t.Fatalf("allocate(a): %v", err)
	}
	b, err := h.Allocate(100)
	if err != nil {
		t.Fatalf("allocate(b): %v", err)
	}
	c, err := h.Allocate(100)
	if err != nil {
		t.Fatalf("allocate(c): %v", err)
	}

	h.Free(a)
	h.Free(c)
	h.Free(b)

	stats := h.Stats()
	if stats.BlocksFree != 1 {
		t.Fatalf("got %d free blocks, want 1", stats.BlocksFree)
	}
	if stats.BytesFree != stats.HeapSize {
		t.Fatalf("free bytes %d != heap size %d, region did not fully coalesce", stats.BytesFree, stats.HeapSize)
	}

	if err := h.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

// S3: reallocating p upward absorbs its freed neighbor q in place.
func TestScenarioReallocInPlace(t *testing.T) {
	h := mustHeap(t, NewSegregatedFit(nil, WithChunkSize(4096)))

	p, err := h.Allocate(40)
	if err != nil {
		t.Fatalf("allocate(p): %v", err)
	}
	q, err := h.Allocate(40)
	if err != nil {
		t.Fatalf("allocate(q): %v", err)
	}

	h.Free(q)

	r, err := h.Reallocate(p, 200)
	if err != nil {
		t.Fatalf("reallocate: %v", err)
	}

	if r != p {
		t.Fatalf("got r=%d, want r==p (%d)", r, p)
	}

	if cap := h.payloadCapacity(r); cap < 200 {
		t.Fatalf("payload capacity %d, want at least 200", cap)
	}

	if err := h.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

// S4: reallocating p to a size its current neighbor can't cover moves it
// to a new location, preserving the original bytes and freeing the old one.
func TestScenarioReallocRelocates(t *testing.T) {
	h := mustHeap(t, NewSegregatedFit(nil, WithChunkSize(4096)))

	p, err := h.Allocate(40)
	if err != nil {
		t.Fatalf("allocate(p): %v", err)
	}
	if _, err := h.Allocate(40); err != nil {
		t.Fatalf("allocate(q): %v", err)
	}

	want := make([]byte, 40)
	for i := range want {
		want[i] = byte(i + 1)
	}
	copy(h.backend.Slice(p, 40), want)

	r, err := h.Reallocate(p, 4000)
	if err != nil {
		t.Fatalf("reallocate: %v", err)
	}

	if r == p {
		t.Fatalf("got r==p, want a relocation for a 4000-byte request")
	}

	got := h.backend.Slice(r, 40)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %d, want %d — payload not preserved across relocation", i, got[i], want[i])
		}
	}

	if h.layout.allocAt(p) {
		t.Fatalf("old block at %d is still marked allocated after relocation", p)
	}

	if err := h.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

// S5: given free blocks sized {32, 64, 128}, best-fit picks 64 and
// worst-fit picks 128. The first-fit case is not checked here.
func TestScenarioFitPolicies(t *testing.T) {
	build := func(t *testing.T, policy FitPolicy) (*Heap, heap.Addr, heap.Addr, heap.Addr) {
		t.Helper()

		h := mustHeap(t, NewSegregatedFit(nil, WithChunkSize(4096), WithFitPolicy(policy)))

		b32 := allocatePayload(t, h, 32-dsize)
		allocatePayload(t, h, 8) // spacer
		b64 := allocatePayload(t, h, 64-dsize)
		allocatePayload(t, h, 8) // spacer
		b128 := allocatePayload(t, h, 128-dsize)
		// Take the rest of the 4096-byte chunk (4096-256 = 3840 bytes) so
		// b128 has an allocated right neighbour and stays a 128-byte block.
		allocatePayload(t, h, 3840-dsize)

		h.Free(b32)
		h.Free(b64)
		h.Free(b128)

		return h, b32, b64, b128
	}

	t.Run("best-fit picks the 64-byte block", func(t *testing.T) {
		h, _, want64, _ := build(t, BestFit)

		got, err := h.Allocate(40)
		if err != nil {
			t.Fatalf("allocate(40): %v", err)
		}

		if got != want64 {
			t.Fatalf("best-fit chose %d, want the 64-byte block at %d", got, want64)
		}
	})

	t.Run("worst-fit picks the 128-byte block", func(t *testing.T) {
		h, _, _, want128 := build(t, WorstFit)

		got, err := h.Allocate(40)
		if err != nil {
			t.Fatalf("allocate(40): %v", err)
		}

		if got != want128 {
			t.Fatalf("worst-fit chose %d, want the 128-byte block at %d", got, want128)
		}
	})
}

// allocatePayload allocates a block able to hold n payload bytes and
// returns its block pointer, failing the test on error.
func allocatePayload(t *testing.T, h *Heap, n uint32) heap.Addr {
	t.Helper()

	bp, err := h.Allocate(n)
	if err != nil {
		t.Fatalf("allocate(%d): %v", n, err)
	}

	return bp
}

// S6: under the buddy design, four single-byte allocations out of an
// empty 4096-byte heap, freed in order, merge all the way back up to one
// 4096-byte free block.
func TestScenarioBuddyMergeChain(t *testing.T) {
	h := mustHeap(t, NewBuddy(nil, WithChunkSize(4096)))

	a, err := h.Allocate(1)
	if err != nil {
		t.Fatalf("allocate(a): %v", err)
	}
	b, err := h.Allocate(1)
	if err != nil {
		t.Fatalf("allocate(b): %v", err)
	}
	c, err := h.Allocate(1)
	if err != nil {
		t.Fatalf("allocate(c): %v", err)
	}
	d, err := h.Allocate(1)
	if err != nil {
		t.Fatalf("allocate(d): %v", err)
	}

	h.Free(a)
	h.Free(b)
	h.Free(c)
	h.Free(d)

	stats := h.Stats()
	if stats.BlocksFree != 1 || stats.BytesFree != 4096 {
		t.Fatalf("got %d free blocks totalling %d bytes, want 1 block of 4096", stats.BlocksFree, stats.BytesFree)
	}

	if err := h.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}
