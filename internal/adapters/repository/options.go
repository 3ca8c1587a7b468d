package repository

// defaultShardCount keeps per-team lock contention low for typical game
// sizes without a measurable memory cost.
const defaultShardCount = 16

// Option applies a configuration option to the in-memory store.
type Option func(*MemStore)

// WithShardCount sets the number of lock shards. Values below one fall
// back to the default.
func WithShardCount(n int) Option {
	return func(m *MemStore) {
		if n > 0 {
			m.shardCount = n
		}
	}
}
