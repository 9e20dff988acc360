package trace

import (
	"fmt"

	"github.com/heapforge/segheap/internal/heap"
)

// Target is anything a Trace can be replayed against. *allocator.Heap
// satisfies this without any adapter code, since its method set already
// matches exactly.
type Target interface {
	Allocate(size uint32) (heap.Addr, error)
	Free(bp heap.Addr)
	Reallocate(bp heap.Addr, size uint32) (heap.Addr, error)
}

// Result summarizes one Replay run.
type Result struct {
	Allocations  int
	Frees        int
	Reallocs     int
	PeakLiveSets int
}

// Replay executes every event in t against target in order, maintaining
// an id -> block-pointer map so that free/reallocate events resolve back
// to the block their matching allocate produced.
func Replay(target Target, t *Trace) (Result, error) {
	live := make(map[int]heap.Addr, len(t.Events))

	var res Result

	for i, ev := range t.Events {
		switch ev.Op {
		case OpAllocate:
			bp, err := target.Allocate(ev.Size)
			if err != nil {
				return res, fmt.Errorf("event %d: allocate(%d): %w", i, ev.Size, err)
			}
			live[ev.ID] = bp
			res.Allocations++

		case OpFree:
			bp, ok := live[ev.ID]
			if !ok {
				return res, fmt.Errorf("event %d: free(%d): id was never allocated", i, ev.ID)
			}
			target.Free(bp)
			delete(live, ev.ID)
			res.Frees++

		case OpRealloc:
			bp, ok := live[ev.ID]
			if !ok {
				return res, fmt.Errorf("event %d: reallocate(%d): id was never allocated", i, ev.ID)
			}
			newBp, err := target.Reallocate(bp, ev.Size)
			if err != nil {
				return res, fmt.Errorf("event %d: reallocate(%d, %d): %w", i, ev.ID, ev.Size, err)
			}
			live[ev.ID] = newBp
			res.Reallocs++

		default:
			return res, fmt.Errorf("event %d: unhandled opcode %s", i, ev.Op)
		}

		if len(live) > res.PeakLiveSets {
			res.PeakLiveSets = len(live)
		}
	}

	return res, nil
}
