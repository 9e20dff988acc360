package allocator

import (
	"fmt"

	"github.com/heapforge/segheap/internal/errors"
	"github.com/heapforge/segheap/internal/heap"
)

// ErrInvariant wraps every error Verify returns, so callers can
// errors.Is(err, ErrInvariant) without matching message text.
var ErrInvariant = fmt.Errorf("allocator: invariant violated")

// Verify walks the entire block chain and free lists, checking every
// structural invariant the three designs share. It never mutates state
// and is safe to call at any point between Allocate/Free/Reallocate
// calls — tests call it after their sequences of operations.
func (h *Heap) Verify() error {
	blocks, err := h.verifyChain()
	if err != nil {
		return err
	}

	if err := h.verifyFreeLists(blocks); err != nil {
		return err
	}

	return nil
}

type blockRecord struct {
	addr  heap.Addr
	size  uint32
	alloc bool
}

// verifyChain walks bp -> NextBlock(bp) from the first real block to the
// break, checking alignment, the minimum size floor, boundary-tag
// consistency, and (boundary-tag designs only) that no two free blocks
// ever sit next to each other uncoalesced. A hard iteration cap turns an
// infinite loop (a corrupted size field pointing backward or at itself)
// into a reported error instead of a hang.
func (h *Heap) verifyChain() ([]blockRecord, error) {
	brk := h.backend.Break()
	blocks := make([]blockRecord, 0, 64)

	maxSteps := uint32(brk-h.payloadBase)/minBlockSize + 1
	steps := uint32(0)

	prevFree := false

	for bp := h.payloadBase; bp < brk; bp = h.layout.NextBlock(bp) {
		steps++
		if steps > maxSteps {
			return nil, fmt.Errorf("%w: %w", ErrInvariant, errors.IntegerOverflow("heap walk", bp, maxSteps))
		}

		size := h.layout.sizeAt(bp)
		if size == 0 {
			break // epilogue sentinel
		}

		next := bp + heap.Addr(size)
		if next <= bp {
			return nil, fmt.Errorf("%w: %w", ErrInvariant, errors.IntegerOverflow("next_block", bp, size))
		}

		if uint32(bp)%dsize != 0 {
			return nil, fmt.Errorf("%w: %w", ErrInvariant, errors.PointerArithmetic(fmt.Sprintf("block at %d is not %d-byte aligned", bp, dsize)))
		}

		if size < minBlockSize {
			return nil, fmt.Errorf("%w: %w", ErrInvariant, errors.InvalidSize(uintptr(size), fmt.Sprintf("block at %d is below the %d-byte floor", bp, minBlockSize)))
		}

		alloc := h.layout.allocAt(bp)

		if !h.buddy {
			header := h.raw.Word(h.layout.HeaderOf(bp))
			footer := h.raw.Word(h.layout.FooterOf(bp))
			if header != footer {
				return nil, fmt.Errorf("%w: block at %d has mismatched header/footer (%#x != %#x)", ErrInvariant, bp, header, footer)
			}

			if !alloc && prevFree {
				return nil, fmt.Errorf("%w: two adjacent free blocks at/before %d were never coalesced", ErrInvariant, bp)
			}
		} else {
			offset := uint32(bp - h.payloadBase)
			if size&(size-1) != 0 {
				return nil, fmt.Errorf("%w: %w", ErrInvariant, errors.InvalidSize(uintptr(size), fmt.Sprintf("buddy block at %d is not a power of two", bp)))
			}
			if offset%size != 0 {
				return nil, fmt.Errorf("%w: buddy block at %d (size %d) is not size-aligned to its heap offset %d", ErrInvariant, bp, size, offset)
			}
		}

		blocks = append(blocks, blockRecord{addr: bp, size: size, alloc: alloc})
		prevFree = !alloc
	}

	return blocks, nil
}

// verifyFreeLists confirms the free-list/free-bit correspondence: every
// block the chain walk marked free appears exactly once across the free
// lists, every block the free lists mention is marked free in the chain,
// and every free block sits in the class its own ClassOf formula assigns
// it to.
func (h *Heap) verifyFreeLists(blocks []blockRecord) error {
	chainFree := make(map[heap.Addr]uint32, len(blocks))
	for _, b := range blocks {
		if !b.alloc {
			chainFree[b.addr] = b.size
		}
	}

	seen := make(map[heap.Addr]bool, len(chainFree))
	brk := h.backend.Break()

	for class := 0; class < h.free.NumClasses(); class++ {
		for bp := h.free.RootOfClass(class); bp != heap.NullAddr; bp = h.layout.succ(bp) {
			if bp < h.payloadBase || bp >= brk {
				return fmt.Errorf("%w: %w", ErrInvariant, errors.IndexOutOfBounds(uintptr(bp), uintptr(brk)))
			}

			if seen[bp] {
				return fmt.Errorf("%w: block at %d appears twice in the free lists", ErrInvariant, bp)
			}
			seen[bp] = true

			size, onChain := chainFree[bp]
			if !onChain {
				return fmt.Errorf("%w: block at %d is on a free list but not marked free on the heap", ErrInvariant, bp)
			}

			if got := h.free.ClassOf(size); got != class {
				return fmt.Errorf("%w: block at %d (size %d) sits in class %d, ClassOf says %d", ErrInvariant, bp, size, class, got)
			}
		}
	}

	for addr := range chainFree {
		if !seen[addr] {
			return fmt.Errorf("%w: block at %d is marked free on the heap but is on no free list", ErrInvariant, addr)
		}
	}

	return nil
}
