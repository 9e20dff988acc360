package allocator

import "github.com/heapforge/segheap/internal/heap"

// numSegregatedClasses is the fixed number of size-classed free lists the
// segregated-fit and buddy designs maintain.
const numSegregatedClasses = 20

// FreeListIndex holds free blocks — either one unified LIFO list (the
// explicit design) or numSegregatedClasses per-size-class LIFO lists (the
// segregated-fit and buddy designs). Every implementation keeps blocks in
// LIFO order: new insertions become the head of their list.
type FreeListIndex interface {
	// ClassOf returns which list a block of the given size belongs in.
	ClassOf(size uint32) int
	// NumClasses returns how many lists this index maintains.
	NumClasses() int
	// RootOfClass returns the current head of list i, or heap.NullAddr.
	RootOfClass(i int) heap.Addr
	// Insert adds bp to the head of its size class's list.
	Insert(bp heap.Addr)
	// Remove unlinks bp from whichever list currently holds it.
	Remove(bp heap.Addr)
}

// explicitList is the explicit-free-list design: a single LIFO list for
// every free block, regardless of size.
type explicitList struct {
	layout BlockLayout
	root   heap.Addr // kept in a struct field rather than embedded in the
	// prologue, unlike the segregated designs' root arrays.
}

func newExplicitList(layout BlockLayout) *explicitList {
	return &explicitList{layout: layout}
}

func (l *explicitList) ClassOf(uint32) int       { return 0 }
func (l *explicitList) NumClasses() int          { return 1 }
func (l *explicitList) RootOfClass(int) heap.Addr { return l.root }

func (l *explicitList) Insert(bp heap.Addr) {
	l.layout.setPred(bp, heap.NullAddr)
	l.layout.setSucc(bp, l.root)

	if l.root != heap.NullAddr {
		l.layout.setPred(l.root, bp)
	}

	l.root = bp
}

func (l *explicitList) Remove(bp heap.Addr) {
	if bp == l.root {
		l.root = l.layout.succ(bp)
		return
	}

	pred := l.layout.pred(bp)
	succ := l.layout.succ(bp)
	l.layout.setSucc(pred, succ)

	if succ != heap.NullAddr {
		l.layout.setPred(succ, pred)
	}
}

// classSizes are the segregated-fit design's per-class upper bounds:
// class i holds (classSizes[i-1], classSizes[i]], doubling from 16.
func classSizes() [numSegregatedClasses]uint32 {
	var sizes [numSegregatedClasses]uint32

	sizes[0] = minBlockSize
	for i := 1; i < numSegregatedClasses; i++ {
		sizes[i] = sizes[i-1] << 1
	}

	return sizes
}

// segregatedList is shared by the segregated-fit and buddy designs: both
// keep numSegregatedClasses root pointers in the heap words just before
// the prologue header (one word each) and differ only in ClassOf's formula.
type segregatedList struct {
	layout    BlockLayout
	rootsBase heap.Addr // address of class-0's root word, ahead of the prologue
	buddy     bool
}

func newSegregatedList(layout BlockLayout, rootsBase heap.Addr, buddy bool) *segregatedList {
	return &segregatedList{layout: layout, rootsBase: rootsBase, buddy: buddy}
}

func (l *segregatedList) rootAddr(i int) heap.Addr {
	return l.rootsBase + heap.Addr(i*wsize)
}

func (l *segregatedList) NumClasses() int { return numSegregatedClasses }

func (l *segregatedList) RootOfClass(i int) heap.Addr {
	return l.layout.Raw.Link(l.rootAddr(i))
}

func (l *segregatedList) setRoot(i int, v heap.Addr) {
	l.layout.Raw.SetLink(l.rootAddr(i), v)
}

// ClassOf picks a size class two different ways depending on design:
//   - segregated-fit: smallest i with size <= classSizes()[i].
//   - buddy: smallest i with 2^i >= size (base a = 0; every buddy block's
//     size is already an exact power of two, so class i holds exactly the
//     blocks of size 2^i — see DESIGN.md for why a = 0 here).
func (l *segregatedList) ClassOf(size uint32) int {
	if l.buddy {
		class := 0
		pow := uint32(1)

		for pow < size && class+1 < numSegregatedClasses {
			pow <<= 1
			class++
		}

		return class
	}

	sizes := classSizes()
	for i := 0; i < numSegregatedClasses; i++ {
		if size <= sizes[i] {
			return i
		}
	}

	return numSegregatedClasses - 1
}

func (l *segregatedList) Insert(bp heap.Addr) {
	class := l.ClassOf(l.layout.sizeAt(bp))
	root := l.RootOfClass(class)

	l.layout.setPred(bp, heap.NullAddr)
	l.layout.setSucc(bp, root)

	if root != heap.NullAddr {
		l.layout.setPred(root, bp)
	}

	l.setRoot(class, bp)
}

func (l *segregatedList) Remove(bp heap.Addr) {
	class := l.ClassOf(l.layout.sizeAt(bp))
	root := l.RootOfClass(class)

	if bp == root {
		l.setRoot(class, l.layout.succ(bp))
		return
	}

	pred := l.layout.pred(bp)
	succ := l.layout.succ(bp)
	l.layout.setSucc(pred, succ)

	if succ != heap.NullAddr {
		l.layout.setPred(succ, pred)
	}
}
