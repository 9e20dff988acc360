package trace

import (
	"strings"
	"testing"

	"github.com/heapforge/segheap/internal/heap"
)

func TestParseRoundTrip(t *testing.T) {
	input := `# a small trace
version 1.0.0
a 0 64
a 1 128
f 0
r 1 4000
f 1
`
	tr, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if tr.Version.String() != "1.0.0" {
		t.Fatalf("got version %s, want 1.0.0", tr.Version)
	}

	want := []Event{
		{Op: OpAllocate, ID: 0, Size: 64},
		{Op: OpAllocate, ID: 1, Size: 128},
		{Op: OpFree, ID: 0},
		{Op: OpRealloc, ID: 1, Size: 4000},
		{Op: OpFree, ID: 1},
	}

	if len(tr.Events) != len(want) {
		t.Fatalf("got %d events, want %d", len(tr.Events), len(want))
	}

	for i, ev := range tr.Events {
		if ev != want[i] {
			t.Fatalf("event %d: got %+v, want %+v", i, ev, want[i])
		}
	}

	var buf strings.Builder
	if err := Write(&buf, tr); err != nil {
		t.Fatalf("write: %v", err)
	}

	reparsed, err := Parse(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(reparsed.Events) != len(want) {
		t.Fatalf("reparsed %d events, want %d", len(reparsed.Events), len(want))
	}
}

func TestParseRejectsIncompatibleVersion(t *testing.T) {
	_, err := Parse(strings.NewReader("version 2.0.0\na 0 8\n"))
	if err == nil {
		t.Fatalf("expected an error for an unsupported major version")
	}
}

func TestParseRejectsMissingHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("a 0 8\n"))
	if err == nil {
		t.Fatalf("expected an error for a missing version header")
	}
}

// fakeTarget is a minimal Target that answers calls without touching a
// real heap, used to check Replay's id-to-pointer bookkeeping in
// isolation from allocator semantics.
type fakeTarget struct {
	next heap.Addr
}

func (f *fakeTarget) Allocate(uint32) (heap.Addr, error) {
	f.next++
	return f.next, nil
}

func (f *fakeTarget) Free(heap.Addr) {}

func (f *fakeTarget) Reallocate(bp heap.Addr, size uint32) (heap.Addr, error) {
	return bp, nil
}

func TestReplayTracksLiveIDs(t *testing.T) {
	tr, err := Parse(strings.NewReader("version 1.0.0\na 0 8\na 1 8\nf 0\nr 1 16\nf 1\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	res, err := Replay(&fakeTarget{}, tr)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if res.Allocations != 2 || res.Frees != 2 || res.Reallocs != 1 {
		t.Fatalf("got %+v, want 2 allocations, 2 frees, 1 realloc", res)
	}
	if res.PeakLiveSets != 2 {
		t.Fatalf("got peak live set %d, want 2", res.PeakLiveSets)
	}
}

func TestReplayRejectsFreeOfUnknownID(t *testing.T) {
	tr, err := Parse(strings.NewReader("version 1.0.0\nf 0\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if _, err := Replay(&fakeTarget{}, tr); err == nil {
		t.Fatalf("expected an error freeing an id that was never allocated")
	}
}
