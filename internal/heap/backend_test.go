package heap

import "testing"

func TestSimulatedBackendExtend(t *testing.T) {
	t.Run("GrowsForward", func(t *testing.T) {
		b := NewSimulatedBackend(64)

		a1, err := b.Extend(16)
		if err != nil {
			t.Fatalf("Extend failed: %v", err)
		}
		if a1 != b.Base() {
			t.Errorf("first Extend should return Base(), got %d want %d", a1, b.Base())
		}

		a2, err := b.Extend(16)
		if err != nil {
			t.Fatalf("Extend failed: %v", err)
		}
		if a2 != a1+16 {
			t.Errorf("second Extend should be contiguous: got %d want %d", a2, a1+16)
		}
	})

	t.Run("OutOfMemory", func(t *testing.T) {
		b := NewSimulatedBackend(32)

		if _, err := b.Extend(16); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := b.Extend(64); err == nil {
			t.Fatal("expected out-of-memory error, got nil")
		}
	})

	t.Run("WordRoundTrip", func(t *testing.T) {
		b := NewSimulatedBackend(64)
		raw := RawHeap{Backend: b}

		a, err := b.Extend(16)
		if err != nil {
			t.Fatalf("Extend failed: %v", err)
		}

		raw.SetWord(a, 0xDEADBEEF)
		if got := raw.Word(a); got != 0xDEADBEEF {
			t.Errorf("Word roundtrip: got %#x want %#x", got, uint32(0xDEADBEEF))
		}

		raw.SetLink(a+4, Addr(0x1234))
		if got := raw.Link(a + 4); got != Addr(0x1234) {
			t.Errorf("Link roundtrip: got %d want %d", got, 0x1234)
		}
	})
}
