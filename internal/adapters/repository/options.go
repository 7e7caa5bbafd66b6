package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxSessions bounds the number of live sessions. When the bound is hit the
// oldest session is evicted. Values <= 0 mean unbounded.
func WithMaxSessions(n int) Option {
	return func(s *MemoryStore) {
		s.maxSessions = n
	}
}

// WithOnEvict registers a callback invoked, outside the store lock, for every
// session evicted to make room.
func WithOnEvict(fn func(*Session)) Option {
	return func(s *MemoryStore) {
		if fn != nil {
			s.onEvict = fn
		}
	}
}
