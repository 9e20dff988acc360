//go:build !debug

package allocator

import "github.com/heapforge/segheap/internal/heap"

// debugCheck is a no-op outside debug builds; call Heap.Verify directly
// when you want the check unconditionally.
func (h *Heap) debugCheck(op string) {}

// debugValidateFree is a no-op outside debug builds: double-free and
// freeing a pointer the allocator never handed out stay genuinely
// undetected outside debug builds.
func (h *Heap) debugValidateFree(bp heap.Addr) {}
