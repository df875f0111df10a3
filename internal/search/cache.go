package search

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// CacheObserver receives cache lifecycle notifications. Observers are
// called synchronously under the cache lock and must not call back into
// the cache.
type CacheObserver interface {
	// OnEvict fires when an entry is displaced by capacity pressure.
	OnEvict(key string)
	// OnExpire fires when an entry is removed because its TTL elapsed.
	OnExpire(key string)
}

// CacheStats summarizes cache effectiveness.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

type cacheEntry struct {
	results   []Result
	timestamp time.Time
	ttl       time.Duration
}

func (e *cacheEntry) expired(now time.Time) bool {
	return now.After(e.timestamp.Add(e.ttl))
}

// InstantCache is the bounded TTL cache that shortcuts the whole search
// pipeline. Eviction on overflow removes the oldest-inserted entry
// (insertion-order FIFO), deliberately not recency-based.
type InstantCache struct {
	mu        sync.Mutex
	entries   map[string]*cacheEntry
	order     []string // insertion order, oldest first
	maxSize   int
	ttl       time.Duration
	observers []CacheObserver
	hits      int64
	misses    int64

	stopCh chan struct{}
	once   sync.Once
}

// NewInstantCache creates a cache holding at most maxSize entries, each
// fresh for ttl. A positive sweepInterval starts a background sweeper
// that removes expired entries; stop it with Close.
func NewInstantCache(maxSize int, ttl, sweepInterval time.Duration) *InstantCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &InstantCache{
		entries: make(map[string]*cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}

	return c
}

// Subscribe registers an observer for eviction and expiry events.
func (c *InstantCache) Subscribe(obs CacheObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, obs)
}

// Key derives a deterministic cache key from the normalized query and
// the options that affect result content. Presentation-only options are
// excluded to avoid cache fragmentation.
func (c *InstantCache) Key(normalizedQuery string, opts Options) string {
	tags := make([]string, len(opts.Tags))
	copy(tags, opts.Tags)
	sort.Strings(tags)

	useAI := "auto"
	if opts.UseAI != nil {
		useAI = fmt.Sprintf("%t", *opts.UseAI)
	}

	canonical := strings.Join([]string{
		normalizedQuery,
		opts.Category,
		strings.Join(tags, ","),
		fmt.Sprintf("%d", opts.effectiveLimit()),
		fmt.Sprintf("%d", opts.Offset),
		opts.SortBy,
		opts.SortOrder,
		useAI,
	}, "\x00")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:16])
}

// Get returns the cached results for key, validating expiry itself
// rather than relying on the sweeper. Expired entries are purged on read.
func (c *InstantCache) Get(key string) ([]Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	if entry.expired(time.Now()) {
		c.removeLocked(key)
		for _, obs := range c.observers {
			obs.OnExpire(key)
		}
		c.misses++
		return nil, false
	}

	c.hits++
	// Hand out a copy so callers cannot mutate the cached results.
	return copyResults(entry.results), true
}

// Set stores results under key with the default TTL.
func (c *InstantCache) Set(key string, results []Result) {
	c.SetWithTTL(key, results, c.ttl)
}

// SetWithTTL stores results with an explicit TTL. When the cache is
// full, the oldest-inserted entry is evicted first.
func (c *InstantCache) SetWithTTL(key string, results []Result, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		// Size check and eviction stay under the same lock as the
		// insert so concurrent writers cannot exceed capacity.
		for len(c.entries) >= c.maxSize && len(c.order) > 0 {
			oldest := c.order[0]
			c.removeLocked(oldest)
			for _, obs := range c.observers {
				obs.OnEvict(oldest)
			}
		}
		c.order = append(c.order, key)
	}

	// Detach from the caller's slice; Search returns it to its own
	// caller, whose mutations must not reach the cached copy.
	c.entries[key] = &cacheEntry{
		results:   copyResults(results),
		timestamp: time.Now(),
		ttl:       ttl,
	}
}

func copyResults(results []Result) []Result {
	out := make([]Result, len(results))
	copy(out, results)
	return out
}

// Len returns the current number of cached entries.
func (c *InstantCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit/miss counters and current size.
func (c *InstantCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Size: len(c.entries)}
}

// Clear removes all entries.
func (c *InstantCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

// Close stops the background sweeper.
func (c *InstantCache) Close() {
	c.once.Do(func() {
		close(c.stopCh)
	})
}

// Sweep removes all expired entries immediately.
func (c *InstantCache) Sweep() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.expired(now) {
			c.removeLocked(key)
			for _, obs := range c.observers {
				obs.OnExpire(key)
			}
		}
	}
}

func (c *InstantCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stopCh:
			return
		}
	}
}

// removeLocked deletes key from the map and the insertion-order list.
// Caller must hold the lock.
func (c *InstantCache) removeLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
