// Package heap implements the HeapBackend contract: the host memory
// library an allocator carves blocks out of. A Backend owns a single
// contiguous byte region that only ever grows, forward, via Extend.
package heap

import "fmt"

// Addr is an offset into a Backend's owned region. Offsets, not raw Go
// pointers, are the addressing unit so that link slots and header words
// stay 4 bytes wide regardless of host pointer width (see DESIGN.md).
type Addr uint32

// NullAddr is the "none" sentinel. Every Backend reserves offset 0 as
// alignment padding, so no real block pointer is ever NullAddr.
const NullAddr Addr = 0

// WordSize is the width, in bytes, of a header/footer/link word.
const WordSize = 4

// Backend is the host memory library an allocator is built on top of.
type Backend interface {
	// Extend appends n bytes at the current break and returns the address
	// of the first new byte.
	Extend(n uint32) (Addr, error)

	// Base returns the first address the allocator is allowed to use.
	Base() Addr

	// Break returns the address one past the last byte currently owned.
	Break() Addr

	// Slice returns a mutable view of n bytes starting at a. The slice is
	// only valid until the next Extend call invalidates it by growing the
	// backing storage out from under a previous allocation.
	Slice(a Addr, n uint32) []byte
}

// ErrOutOfMemory is returned by Extend when the backend cannot grow.
var ErrOutOfMemory = fmt.Errorf("heap: backend out of memory")

// RawHeap is the safe, unsafe.Pointer-free word-access primitive the
// allocator's BlockLayout is built on: offset in, word out.
type RawHeap struct {
	Backend Backend
}

// Word reads the 4-byte little-endian word at a.
func (h RawHeap) Word(a Addr) uint32 {
	b := h.Backend.Slice(a, WordSize)
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// SetWord writes v as a 4-byte little-endian word at a.
func (h RawHeap) SetWord(a Addr, v uint32) {
	b := h.Backend.Slice(a, WordSize)
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// Link reads a free-list link slot (pred/succ), stored as a raw Addr word.
func (h RawHeap) Link(a Addr) Addr { return Addr(h.Word(a)) }

// SetLink writes a free-list link slot.
func (h RawHeap) SetLink(a Addr, v Addr) { h.SetWord(a, uint32(v)) }

// Bytes returns the n payload bytes starting at a, for copying during
// reallocation.
func (h RawHeap) Bytes(a Addr, n uint32) []byte { return h.Backend.Slice(a, n) }
