// Package cache memoizes verdicts for identical analysis requests.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"
	"sync/atomic"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/model"
	"github.com/Akhil3111/VoiceGuard-API/pkg/metrics"
)

// Cache stores verdicts by request digest. Identical bytes, format, and
// overrides always produce the same digest, so a hit can be returned without
// re-running the pipeline.
type Cache interface {
	// Lookup returns the cached verdict for key, if any.
	Lookup(ctx context.Context, key string) (model.Verdict, bool)

	// Store records the verdict under key, evicting if the cache is full.
	Store(ctx context.Context, key string, verdict model.Verdict)

	Size() int64
}

// Digest produces the cache key for one analysis request: SHA-256 over the
// raw bytes, the declared format, and any per-request overrides. The backend
// name participates because different backends may disagree on the same clip.
func Digest(raw []byte, f model.Format, ov *model.Overrides) string {
	h := sha256.New()
	h.Write(raw)

	var meta [16]byte
	binary.LittleEndian.PutUint32(meta[0:], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(meta[4:], uint32(f.BitDepth))
	binary.LittleEndian.PutUint32(meta[8:], uint32(f.Channels))
	h.Write(meta[:12])
	h.Write([]byte(f.Codec))

	if ov != nil {
		var o [24]byte
		binary.LittleEndian.PutUint32(o[0:], uint32(ov.WindowMS))
		binary.LittleEndian.PutUint32(o[4:], uint32(ov.HopMS))
		binary.LittleEndian.PutUint64(o[8:], math.Float64bits(ov.GenuineThreshold))
		binary.LittleEndian.PutUint64(o[16:], math.Float64bits(ov.SyntheticThreshold))
		h.Write(o[:])
		h.Write([]byte(ov.Backend))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// node represents a single entry in the linked list
type node struct {
	key     string
	verdict model.Verdict
	next    *node
}

// reset clears the node state for reuse
func (n *node) reset() {
	n.key = ""
	n.verdict = model.Verdict{}
	n.next = nil
}

// inMemoryCache implements Cache using an in-memory linked list with LIFO
// eviction. For bounded mode (maxSize > 0): linked list with LIFO eviction
// and sync.Pool for nodes. For unbounded mode (maxSize <= 0): plain map.
type inMemoryCache struct {
	mu       sync.RWMutex
	entries  map[string]*node
	head     *node        // head of linked list (most recently added)
	maxSize  int          // maximum number of verdicts to keep (0 or negative = UNBOUNDED)
	size     atomic.Int64 // current number of entries (atomic)
	nodePool sync.Pool    // pool for reusing node objects
}

// NewInMemoryCache creates a new in-memory verdict cache with configuration
// options.
func NewInMemoryCache(opts ...Option) Cache {
	c := &inMemoryCache{
		maxSize: 50000, // default max size
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	c.entries = make(map[string]*node)

	// Initialize sync.Pool for node reuse in bounded mode
	if c.maxSize > 0 {
		c.nodePool = sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		}
	}

	return c
}

// Lookup returns the cached verdict for key, if any.
func (c *inMemoryCache) Lookup(_ context.Context, key string) (model.Verdict, bool) {
	c.mu.RLock()
	n, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || n == nil {
		metrics.RecordCacheMiss()
		return model.Verdict{}, false
	}
	metrics.RecordCacheHit()
	return n.verdict, true
}

// Store records the verdict under key. Storing an existing key refreshes the
// verdict in place.
func (c *inMemoryCache) Store(_ context.Context, key string, verdict model.Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok && existing != nil {
		existing.verdict = verdict
		return
	}

	if c.maxSize > 0 {
		// BOUNDED MODE: linked list with LIFO eviction.
		if len(c.entries) >= c.maxSize {
			c.evictLIFO()
		}

		n := c.nodePool.Get().(*node)
		n.key = key
		n.verdict = verdict
		n.next = c.head

		c.head = n
		c.entries[key] = n
	} else {
		// UNBOUNDED MODE: map only, no eviction.
		c.entries[key] = &node{key: key, verdict: verdict}
	}
	c.size.Add(1)
}

// evictLIFO removes the most recently added entry below the head, keeping
// the oldest entries warm. Must be called with c.mu held.
func (c *inMemoryCache) evictLIFO() {
	if len(c.entries) == 0 || c.head == nil {
		return
	}

	victim := c.head
	c.head = victim.next

	delete(c.entries, victim.key)
	victim.reset()
	c.nodePool.Put(victim)
	c.size.Add(-1)
}

// Size returns the current number of cached verdicts.
func (c *inMemoryCache) Size() int64 {
	return c.size.Load()
}
