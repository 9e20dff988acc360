//go:build !unix

package heap

// NewMmapBackend falls back to the simulated backend on platforms without
// a POSIX mmap (e.g. Windows).
func NewMmapBackend(capacity uint32) (Backend, error) {
	return NewSimulatedBackend(capacity), nil
}
