package allocator

// Config configures a Heap at construction time, following the usual
// functional-options shape: a zero-value-free defaultConfig plus a chain
// of Option closures that override individual fields.
type Config struct {
	// ChunkSize is the minimum number of bytes a growth request asks the
	// backend for when FindFit misses.
	ChunkSize uint32
	// Policy selects the Searcher's fit strategy. Ignored by the buddy
	// design, which is always FirstFit (every class holds exact matches).
	Policy FitPolicy
	// BackendCapacity bounds how large the SimulatedBackend's reserved
	// region is, when the caller doesn't supply their own Backend.
	BackendCapacity uint32
}

type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		ChunkSize:       4096,
		Policy:          FirstFit,
		BackendCapacity: 64 * 1024 * 1024,
	}
}

// WithChunkSize overrides the default 4096-byte growth chunk.
func WithChunkSize(n uint32) Option {
	return func(c *Config) { c.ChunkSize = n }
}

// WithFitPolicy selects first/best/worst fit for the explicit and
// segregated-fit designs.
func WithFitPolicy(p FitPolicy) Option {
	return func(c *Config) { c.Policy = p }
}

// WithBackendCapacity overrides the default reserved backend size.
func WithBackendCapacity(n uint32) Option {
	return func(c *Config) { c.BackendCapacity = n }
}
