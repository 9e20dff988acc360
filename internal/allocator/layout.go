// Package allocator implements the boundary-tag / buddy-system block
// skeleton shared by all three free-list designs: explicit, segregated-fit,
// and segregated buddy. One Heap engine (AllocatorFacade) is configured
// differently per design; BlockLayout, FreeListIndex, Placer, Coalescer,
// and Searcher are the pieces that get swapped or parameterized.
package allocator

import "github.com/heapforge/segheap/internal/heap"

const (
	// wsize is the width, in bytes, of a header/footer/link word.
	wsize = heap.WordSize
	// dsize is double-word alignment: every block size is a multiple of it.
	dsize = 2 * wsize

	allocBit = 0x1
	sizeMask = ^uint32(0x7)

	// minBlockSize is the smallest block any design will ever produce:
	// header + footer + pred link + succ link, all 4 bytes wide.
	minBlockSize = 16
)

// alignUp rounds size up to the nearest multiple of align (align a power
// of two).
func alignUp(size, align uint32) uint32 {
	return (size + align - 1) &^ (align - 1)
}

// pack combines a block size and an allocation flag into one header/footer
// word. size's low 3 bits are always clear (it is always a multiple of 8),
// leaving room for the flag.
func pack(size uint32, flag uint32) uint32 { return size | (flag & allocBit) }

func sizeOf(word uint32) uint32 { return word & sizeMask }
func flagOf(word uint32) uint32 { return word & allocBit }

// BlockLayout navigates block headers/footers/links over a RawHeap. It
// holds no heap-specific state of its own — every method is a pure
// function of the address passed in and the bytes currently at that
// address.
type BlockLayout struct {
	Raw heap.RawHeap
}

// HeaderOf returns the address of bp's header word.
func (l BlockLayout) HeaderOf(bp heap.Addr) heap.Addr { return bp - wsize }

// FooterOf returns the address of bp's footer word. Only meaningful for
// boundary-tag designs (explicit, segregated-fit); the buddy design has no
// footer and must not call this.
func (l BlockLayout) FooterOf(bp heap.Addr) heap.Addr {
	size := sizeOf(l.Raw.Word(l.HeaderOf(bp)))
	return bp + heap.Addr(size) - dsize
}

// NextBlock returns the block pointer immediately following bp, per bp's
// own header size.
func (l BlockLayout) NextBlock(bp heap.Addr) heap.Addr {
	size := sizeOf(l.Raw.Word(l.HeaderOf(bp)))
	return bp + heap.Addr(size)
}

// PrevBlock returns the block pointer immediately preceding bp, by reading
// the word just before bp's header — the preceding block's footer. Only
// valid in designs with footers.
func (l BlockLayout) PrevBlock(bp heap.Addr) heap.Addr {
	size := sizeOf(l.Raw.Word(bp - dsize))
	return bp - heap.Addr(size)
}

// PredLink and SuccLink are the two link-word addresses inside a free
// block's payload: predecessor at offset 0, successor at offset 4.
func (l BlockLayout) PredLink(bp heap.Addr) heap.Addr { return bp }
func (l BlockLayout) SuccLink(bp heap.Addr) heap.Addr { return bp + wsize }

func (l BlockLayout) pred(bp heap.Addr) heap.Addr { return l.Raw.Link(l.PredLink(bp)) }
func (l BlockLayout) succ(bp heap.Addr) heap.Addr { return l.Raw.Link(l.SuccLink(bp)) }

func (l BlockLayout) setPred(bp, v heap.Addr) { l.Raw.SetLink(l.PredLink(bp), v) }
func (l BlockLayout) setSucc(bp, v heap.Addr) { l.Raw.SetLink(l.SuccLink(bp), v) }

// sizeAt returns the block size recorded in bp's header.
func (l BlockLayout) sizeAt(bp heap.Addr) uint32 { return sizeOf(l.Raw.Word(l.HeaderOf(bp))) }

// allocAt returns whether bp's header marks it allocated.
func (l BlockLayout) allocAt(bp heap.Addr) bool { return flagOf(l.Raw.Word(l.HeaderOf(bp))) == 1 }

// writeBoundaryTag stamps both header and footer of bp with pack(size, flag).
func (l BlockLayout) writeBoundaryTag(bp heap.Addr, size, flag uint32) {
	word := pack(size, flag)
	l.Raw.SetWord(l.HeaderOf(bp), word)
	l.Raw.SetWord(bp+heap.Addr(size)-dsize, word)
}

// writeHeaderOnly stamps only bp's header — the buddy design's layout.
func (l BlockLayout) writeHeaderOnly(bp heap.Addr, size, flag uint32) {
	l.Raw.SetWord(l.HeaderOf(bp), pack(size, flag))
}
