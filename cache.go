package filemagic

import (
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ============================================================================
// Cache Interface
// ============================================================================

// Cache stores detection results by content key.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached result and true if present.
	Get(key string) (CachedResult, bool)

	// Set stores a result. A TTL of 0 means no expiration.
	Set(key string, value CachedResult, ttl time.Duration)

	// Delete removes a result.
	Delete(key string)

	// Clear removes all results.
	Clear()
}

// CachedResult is a memoised detection outcome. Matched is false for
// content that matched no signature.
type CachedResult struct {
	Type    FileType
	Matched bool
}

// CacheStatistics contains cache performance metrics.
type CacheStatistics struct {
	Hits    int64
	Misses  int64
	Size    int64
	HitRate float64
}

// ============================================================================
// In-Memory Cache Implementation
// ============================================================================

type cacheEntry struct {
	value      CachedResult
	expiration time.Time
	hasExpiry  bool
}

// MemoryCache is an in-memory Cache with TTL-based expiration.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	hits    int64
	misses  int64
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*cacheEntry),
	}
}

// Get retrieves a result from the cache.
func (c *MemoryCache) Get(key string) (CachedResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return CachedResult{}, false
	}

	if entry.hasExpiry && time.Now().After(entry.expiration) {
		delete(c.entries, key)
		c.misses++
		return CachedResult{}, false
	}

	c.hits++
	return CachedResult{Type: entry.value.Type.clone(), Matched: entry.value.Matched}, true
}

// Set stores a result in the cache.
func (c *MemoryCache) Set(key string, value CachedResult, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{value: CachedResult{Type: value.Type.clone(), Matched: value.Matched}}
	if ttl > 0 {
		entry.expiration = time.Now().Add(ttl)
		entry.hasExpiry = true
	}
	c.entries[key] = entry
}

// Delete removes a result from the cache.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all results from the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() CacheStatistics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStatistics{
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    int64(len(c.entries)),
		HitRate: hitRate,
	}
}

// Cleanup removes expired entries from the cache.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if entry.hasExpiry && now.After(entry.expiration) {
			delete(c.entries, key)
		}
	}
}

var _ Cache = (*MemoryCache)(nil)

// ============================================================================
// CachingDetector
// ============================================================================

// CacheOptions configures a CachingDetector.
type CacheOptions struct {
	// TTL is the lifetime of cached results. 0 means no expiration.
	// Default: 5 minutes
	TTL time.Duration

	// KeyPrefix is prepended to all cache keys.
	// Default: "filemagic:"
	KeyPrefix string

	// OnCacheHit is called with the content key when a result is served
	// from the cache.
	OnCacheHit func(key string)

	// OnCacheMiss is called with the content key when detection runs.
	OnCacheMiss func(key string)
}

// CacheOption is a functional option for configuring CachingDetector.
type CacheOption func(*CacheOptions)

// WithCacheTTL sets the lifetime of cached results.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(o *CacheOptions) {
		o.TTL = ttl
	}
}

// WithCacheKeyPrefix sets the prefix for cache keys.
func WithCacheKeyPrefix(prefix string) CacheOption {
	return func(o *CacheOptions) {
		o.KeyPrefix = prefix
	}
}

// WithCacheCallbacks sets hit and miss callbacks.
func WithCacheCallbacks(onHit, onMiss func(key string)) CacheOption {
	return func(o *CacheOptions) {
		o.OnCacheHit = onHit
		o.OnCacheMiss = onMiss
	}
}

// CachingDetector memoises detection results by content.
//
// The key is the xxhash64 digest of the whole source, so byte-identical
// uploads are classified once. Only seekable sources are cached: the content
// is streamed through the hash, the source is rewound to where it was, and
// detection runs on a miss. Forward-only sources and failed detections are
// passed through uncached.
type CachingDetector struct {
	detector *Detector
	cache    Cache
	opts     CacheOptions
}

// NewCachingDetector wraps d with cache.
func NewCachingDetector(d *Detector, cache Cache, opts ...CacheOption) *CachingDetector {
	options := CacheOptions{
		TTL:       5 * time.Minute,
		KeyPrefix: "filemagic:",
	}
	for _, opt := range opts {
		opt(&options)
	}
	if d == nil {
		d = NewDetector()
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &CachingDetector{detector: d, cache: cache, opts: options}
}

// Detector returns the wrapped detector
func (c *CachingDetector) Detector() *Detector {
	return c.detector
}

// Cache returns the backing cache
func (c *CachingDetector) Cache() Cache {
	return c.cache
}

// Detect returns a cached result for src's content, running the wrapped
// detector on a miss.
func (c *CachingDetector) Detect(src Source) (*FileType, error) {
	if src == nil || !src.CanSeek() {
		return c.detector.Detect(src)
	}

	key, err := c.contentKey(src)
	if err != nil {
		return nil, err
	}

	if cached, ok := c.cache.Get(key); ok {
		if c.opts.OnCacheHit != nil {
			c.opts.OnCacheHit(key)
		}
		if !cached.Matched {
			return nil, nil
		}
		return found(cached.Type), nil
	}
	if c.opts.OnCacheMiss != nil {
		c.opts.OnCacheMiss(key)
	}

	ft, err := c.detector.Detect(src)
	if err != nil {
		return nil, err
	}

	result := CachedResult{Matched: ft != nil}
	if ft != nil {
		result.Type = *ft
	}
	c.cache.Set(key, result, c.opts.TTL)
	return ft, nil
}

// contentKey hashes the whole source and restores the position. The start
// offset is part of the key because the first read begins there.
func (c *CachingDetector) contentKey(src Source) (string, error) {
	start, err := src.Position()
	if err != nil {
		return "", opError("position", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", opError("seek", err)
	}

	h := xxhash.New()
	n, err := io.Copy(h, src)
	if err != nil {
		return "", opError("read", err)
	}
	if _, err := src.Seek(start, io.SeekStart); err != nil {
		return "", opError("seek", err)
	}

	return fmt.Sprintf("%s%s:%d:%d", c.opts.KeyPrefix, hex.EncodeToString(h.Sum(nil)), n, start), nil
}

var (
	_ ContentDetector = (*Detector)(nil)
	_ ContentDetector = (*CachingDetector)(nil)
)
