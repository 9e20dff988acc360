package allocator

import "github.com/heapforge/segheap/internal/heap"

// NewSegregatedFit builds the segregated-fit design: numSegregatedClasses
// LIFO free lists keyed by classSizes, rooted just before the prologue, searched
// with opts' fit policy starting at the requested size's own class.
func NewSegregatedFit(backend heap.Backend, opts ...Option) (*Heap, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if backend == nil {
		backend = heap.NewSimulatedBackend(cfg.BackendCapacity)
	}

	h := newHeap(backend, false, cfg.ChunkSize)

	freeList := newSegregatedList(h.layout, heap.NullAddr, false)
	h.free = freeList
	h.place = Placer{Layout: h.layout, Free: freeList, Buddy: false}
	h.coal = Coalescer{Layout: h.layout, Free: freeList, Buddy: false}
	h.search = Searcher{Layout: h.layout, Free: freeList, Policy: cfg.Policy}

	if err := h.Initialize(); err != nil {
		return nil, err
	}

	return h, nil
}
