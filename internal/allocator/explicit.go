package allocator

import "github.com/heapforge/segheap/internal/heap"

// NewExplicit builds the explicit-free-list design: one LIFO free list
// shared by every block size, searched with opts' fit policy (first-fit
// by default).
//
// If backend is nil, a heap.SimulatedBackend sized by the config's
// BackendCapacity is created and owned by the returned Heap.
func NewExplicit(backend heap.Backend, opts ...Option) (*Heap, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if backend == nil {
		backend = heap.NewSimulatedBackend(cfg.BackendCapacity)
	}

	h := newHeap(backend, false, cfg.ChunkSize)

	freeList := newExplicitList(h.layout)
	h.free = freeList
	h.place = Placer{Layout: h.layout, Free: freeList, Buddy: false}
	h.coal = Coalescer{Layout: h.layout, Free: freeList, Buddy: false}
	h.search = Searcher{Layout: h.layout, Free: freeList, Policy: cfg.Policy}

	if err := h.Initialize(); err != nil {
		return nil, err
	}

	return h, nil
}
