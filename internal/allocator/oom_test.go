package allocator

import (
	"testing"

	"github.com/heapforge/segheap/internal/heap"
	"github.com/heapforge/segheap/internal/heap/heapmock"
	"go.uber.org/mock/gomock"
)

// TestAllocateSurfacesBackendFailure forces the backend's third Extend
// call (the first real grow after Initialize's own two calls) to fail,
// without needing a backend actually sized to run out — useful for
// exercising the OOM path against backends (like MmapBackend) that are
// expensive to exhaust for real.
func TestAllocateSurfacesBackendFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	real := heap.NewSimulatedBackend(1 << 20)
	mock := heapmock.NewMockBackend(ctrl)

	mock.EXPECT().Base().DoAndReturn(real.Base).AnyTimes()
	mock.EXPECT().Break().DoAndReturn(real.Break).AnyTimes()
	mock.EXPECT().Slice(gomock.Any(), gomock.Any()).DoAndReturn(real.Slice).AnyTimes()

	calls := 0
	mock.EXPECT().Extend(gomock.Any()).DoAndReturn(func(n uint32) (heap.Addr, error) {
		calls++
		if calls <= 2 {
			return real.Extend(n)
		}
		return heap.NullAddr, heap.ErrOutOfMemory
	}).AnyTimes()

	h, err := NewExplicit(mock, WithChunkSize(256))
	if err != nil {
		t.Fatalf("construct: %v", err)
	}

	// The 256-byte initial chunk holds this first allocation...
	if _, err := h.Allocate(64); err != nil {
		t.Fatalf("allocate within initial chunk: %v", err)
	}

	// ...but a request too big to fit forces a third Extend call, which
	// the mock is rigged to fail.
	if _, err := h.Allocate(4096); err == nil {
		t.Fatalf("expected an out-of-memory error, got nil")
	}
}
