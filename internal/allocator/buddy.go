package allocator

import "github.com/heapforge/segheap/internal/heap"

// NewBuddy builds the segregated buddy-system design: numSegregatedClasses
// LIFO free lists, one per power-of-two size, rooted just before the prologue.
// The fit policy is always first-fit — every class holds blocks of one
// exact size, so best-fit and worst-fit are meaningless here — so
// WithFitPolicy is ignored when it's passed to NewBuddy.
func NewBuddy(backend heap.Backend, opts ...Option) (*Heap, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if backend == nil {
		backend = heap.NewSimulatedBackend(cfg.BackendCapacity)
	}

	h := newHeap(backend, true, cfg.ChunkSize)

	freeList := newSegregatedList(h.layout, heap.NullAddr, true)
	h.free = freeList
	h.place = Placer{Layout: h.layout, Free: freeList, Buddy: true}
	h.coal = Coalescer{Layout: h.layout, Free: freeList, Buddy: true}
	h.search = Searcher{Layout: h.layout, Free: freeList, Policy: FirstFit}

	if err := h.Initialize(); err != nil {
		return nil, err
	}

	return h, nil
}
