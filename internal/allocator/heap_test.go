package allocator

import (
	"testing"

	"github.com/heapforge/segheap/internal/heap"
)

func newTestHeaps(t *testing.T) map[string]*Heap {
	t.Helper()

	return map[string]*Heap{
		"explicit":       mustHeap(t, NewExplicit(nil)),
		"segregated-fit": mustHeap(t, NewSegregatedFit(nil)),
		"buddy":          mustHeap(t, NewBuddy(nil)),
	}
}

func TestAllocateFreeRoundTrip(t *testing.T) {
	for name, h := range newTestHeaps(t) {
		t.Run(name, func(t *testing.T) {
			var ptrs []heap.Addr

			for i := 0; i < 32; i++ {
				bp, err := h.Allocate(uint32(8 + i*4))
				if err != nil {
					t.Fatalf("allocate %d: %v", i, err)
				}
				ptrs = append(ptrs, bp)
			}

			if err := h.Verify(); err != nil {
				t.Fatalf("verify after allocations: %v", err)
			}

			for _, bp := range ptrs {
				h.Free(bp)
			}

			if err := h.Verify(); err != nil {
				t.Fatalf("verify after frees: %v", err)
			}

			stats := h.Stats()
			if stats.BlocksInUse != 0 {
				t.Fatalf("got %d blocks still in use after freeing everything", stats.BlocksInUse)
			}
		})
	}
}

func TestAllocateZeroReturnsNull(t *testing.T) {
	for name, h := range newTestHeaps(t) {
		t.Run(name, func(t *testing.T) {
			bp, err := h.Allocate(0)
			if err != nil || bp != heap.NullAddr {
				t.Fatalf("allocate(0) = (%d, %v), want (NullAddr, nil)", bp, err)
			}
		})
	}
}

func TestFreeNullIsNoop(t *testing.T) {
	for name, h := range newTestHeaps(t) {
		t.Run(name, func(t *testing.T) {
			h.Free(heap.NullAddr) // must not panic

			if err := h.Verify(); err != nil {
				t.Fatalf("verify after freeing NullAddr: %v", err)
			}
		})
	}
}

func TestReallocateEdgeCases(t *testing.T) {
	for name, h := range newTestHeaps(t) {
		t.Run(name, func(t *testing.T) {
			bp, err := h.Allocate(64)
			if err != nil {
				t.Fatalf("allocate: %v", err)
			}

			if r, err := h.Reallocate(heap.NullAddr, 32); err != nil || r == heap.NullAddr {
				t.Fatalf("reallocate(NullAddr, 32) = (%d, %v), want a fresh block", r, err)
			}

			r, err := h.Reallocate(bp, 0)
			if err != nil || r != heap.NullAddr {
				t.Fatalf("reallocate(bp, 0) = (%d, %v), want (NullAddr, nil)", r, err)
			}

			if h.layout.allocAt(bp) {
				t.Fatalf("reallocate(bp, 0) should free bp, but it is still marked allocated")
			}
		})
	}
}

func TestGrowBeyondInitialChunk(t *testing.T) {
	for name, h := range newTestHeaps(t) {
		t.Run(name, func(t *testing.T) {
			var last heap.Addr
			var err error

			for i := 0; i < 64; i++ {
				last, err = h.Allocate(512)
				if err != nil {
					t.Fatalf("allocate %d: %v", i, err)
				}
			}

			if last == heap.NullAddr {
				t.Fatalf("expected a valid block pointer")
			}

			if h.Stats().GrowCount < 2 {
				t.Fatalf("got %d grows, want at least 2 for 64*512 bytes over a 4096-byte chunk", h.Stats().GrowCount)
			}

			if err := h.Verify(); err != nil {
				t.Fatalf("verify: %v", err)
			}
		})
	}
}

func TestOutOfMemory(t *testing.T) {
	backend := heap.NewSimulatedBackend(512)

	h, err := NewExplicit(backend, WithChunkSize(256))
	if err != nil {
		t.Fatalf("construct: %v", err)
	}

	var lastErr error
	for i := 0; i < 100; i++ {
		if _, err := h.Allocate(200); err != nil {
			lastErr = err
			break
		}
	}

	if lastErr == nil {
		t.Fatalf("expected an out-of-memory error once the 512-byte backend is exhausted")
	}
}
