//go:build debug

package allocator

import (
	"github.com/heapforge/segheap/internal/errors"
	"github.com/heapforge/segheap/internal/heap"
)

// In debug builds, every Allocate/Free/Reallocate call re-verifies the
// whole heap, trading speed for an immediate panic at the operation that
// actually broke an invariant instead of a confusing failure later.

func (h *Heap) debugCheck(op string) {
	if err := h.Verify(); err != nil {
		panic("allocator debug check after " + op + ": " + err.Error())
	}
}

// debugValidateFree catches two misuses that are otherwise undefined
// behavior (double-free, freeing a pointer the allocator never handed
// out) before Free does anything irreversible. Outside debug builds
// these remain genuinely undetected.
func (h *Heap) debugValidateFree(bp heap.Addr) {
	if bp < h.payloadBase || bp >= h.backend.Break() || uint32(bp)%dsize != 0 {
		panic(errors.InvalidBlockPointer(uint32(bp)).Error())
	}

	if !h.layout.allocAt(bp) {
		panic(errors.DoubleFree(uint32(bp)).Error())
	}
}
