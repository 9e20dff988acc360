//go:build unix

package heap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapBackend is a Backend whose bytes come from a real anonymous mapping
// rather than a Go-GC-managed slice. Extend behaves like sbrk: it advances
// a break cursor inside the single mapping reserved at construction time,
// so issued addresses never move.
type MmapBackend struct {
	mem   []byte
	brk   Addr
	limit Addr
}

// NewMmapBackend reserves a PROT_READ|PROT_WRITE anonymous mapping of
// capacity bytes.
func NewMmapBackend(capacity uint32) (Backend, error) {
	mem, err := unix.Mmap(-1, 0, int(capacity), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("heap: mmap %d bytes: %w", capacity, err)
	}

	return &MmapBackend{
		mem:   mem,
		brk:   WordSize,
		limit: Addr(capacity),
	}, nil
}

func (b *MmapBackend) Extend(n uint32) (Addr, error) {
	if n == 0 {
		return b.brk, nil
	}

	start := b.brk
	if uint32(start)+n > uint32(b.limit) {
		return NullAddr, fmt.Errorf("mmap backend: %w (need %d, have %d)", ErrOutOfMemory, n, uint32(b.limit)-uint32(start))
	}

	b.brk += Addr(n)

	return start, nil
}

func (b *MmapBackend) Base() Addr  { return WordSize }
func (b *MmapBackend) Break() Addr { return b.brk }

func (b *MmapBackend) Slice(a Addr, n uint32) []byte {
	return b.mem[a : uint32(a)+n]
}

// Close releases the mapping back to the OS. Not part of the Backend
// interface — the allocator never shrinks or unmaps its region on its
// own, but the backend itself may still be torn down by whoever
// constructed it.
func (b *MmapBackend) Close() error {
	return unix.Munmap(b.mem)
}
