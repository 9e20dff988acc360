package allocator

import "github.com/heapforge/segheap/internal/heap"

// FitPolicy selects how Searcher picks among several candidate free
// blocks, as a runtime-visible enum rather than a compile-time choice.
type FitPolicy int

const (
	// FirstFit returns the first block seen that is large enough.
	FirstFit FitPolicy = iota
	// BestFit returns the smallest block seen that is large enough,
	// first-seen breaking ties.
	BestFit
	// WorstFit returns the largest block seen that is large enough,
	// first-seen breaking ties.
	WorstFit
)

func (p FitPolicy) String() string {
	switch p {
	case FirstFit:
		return "first-fit"
	case BestFit:
		return "best-fit"
	case WorstFit:
		return "worst-fit"
	default:
		return "unknown-fit"
	}
}

// Searcher locates a free block big enough for an allocation request. It
// never mutates the FreeListIndex; Placer does that once a candidate is
// chosen.
type Searcher struct {
	Layout BlockLayout
	Free   FreeListIndex
	Policy FitPolicy
}

// FindFit returns a free block whose size is at least asize, or
// heap.NullAddr if none exists anywhere in the index. Iteration always
// starts at the size class asize itself belongs to and proceeds to
// larger classes — for the explicit design (one class) this degenerates
// to a single list walk.
func (s Searcher) FindFit(asize uint32) heap.Addr {
	start := s.Free.ClassOf(asize)

	switch s.Policy {
	case FirstFit:
		return s.firstFit(asize, start)
	case BestFit:
		return s.extremeFit(asize, start, true)
	case WorstFit:
		return s.extremeFit(asize, start, false)
	default:
		return s.firstFit(asize, start)
	}
}

func (s Searcher) firstFit(asize uint32, start int) heap.Addr {
	for class := start; class < s.Free.NumClasses(); class++ {
		for bp := s.Free.RootOfClass(class); bp != heap.NullAddr; bp = s.Layout.succ(bp) {
			if asize <= s.Layout.sizeAt(bp) {
				return bp
			}
		}
	}

	return heap.NullAddr
}

// extremeFit scans every class from start to the end, keeping the
// smallest (best=true) or largest (best=false) fitting candidate seen,
// with first-seen winning ties.
func (s Searcher) extremeFit(asize uint32, start int, best bool) heap.Addr {
	var (
		candidate heap.Addr
		chosen    uint32
	)

	for class := start; class < s.Free.NumClasses(); class++ {
		for bp := s.Free.RootOfClass(class); bp != heap.NullAddr; bp = s.Layout.succ(bp) {
			size := s.Layout.sizeAt(bp)
			if size < asize {
				continue
			}

			if candidate == heap.NullAddr {
				candidate, chosen = bp, size
				continue
			}

			if best && size < chosen {
				candidate, chosen = bp, size
			} else if !best && size > chosen {
				candidate, chosen = bp, size
			}
		}
	}

	return candidate
}
