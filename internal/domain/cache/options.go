package cache

// Option configures the in-memory verdict cache.
type Option func(*inMemoryCache)

// WithMaxSize sets the maximum number of verdicts to keep in memory.
// Zero or negative means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(c *inMemoryCache) {
		c.maxSize = maxSize
	}
}
