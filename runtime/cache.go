package runtime

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Cache stores rendered output keyed by CacheKey. Implementations are
// responsible for persisting output between renders or process runs.
type Cache interface {
	// Get retrieves the output for key. A miss returns false with a nil error.
	Get(key string) (string, bool, error)

	// Put stores the output for key.
	Put(key, output string) error

	// Remove deletes the output for key, ignoring missing entries.
	Remove(key string) error

	// Clear removes all cached output.
	Clear() error
}

// CacheKey derives the key of a render from the unprocessed source of the
// root template and the data it was rendered with: the first 30 hex digits
// of the MD5 of the source followed by the JSON encoded data.
func CacheKey(source string, data map[string]interface{}) (string, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", NewErrorWithCause(ErrorTypeCache, fmt.Sprintf("cannot encode render data: %v", err), err)
	}
	sum := md5.Sum(append([]byte(source), encoded...))
	return hex.EncodeToString(sum[:])[:30], nil
}

// cacheEntry represents cached output with metadata
type cacheEntry struct {
	output    string
	storedAt  time.Time
	expiresAt time.Time
}

// isExpired checks if the cache entry has expired
func (e *cacheEntry) isExpired(now time.Time) bool {
	if e.expiresAt.IsZero() {
		return false
	}
	return now.After(e.expiresAt)
}

// MemoryCache provides thread-safe output caching with TTL support
type MemoryCache struct {
	entries map[string]*cacheEntry
	mutex   sync.RWMutex
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// NewMemoryCache creates a new memory cache. A zero ttl keeps entries until
// they are evicted; a maxSize below one means no size bound.
func NewMemoryCache(ttl time.Duration, maxSize int) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get retrieves output from the cache
func (c *MemoryCache) Get(key string) (string, bool, error) {
	c.mutex.RLock()
	entry, ok := c.entries[key]
	c.mutex.RUnlock()

	if !ok {
		return "", false, nil
	}

	if entry.isExpired(c.now()) {
		c.Remove(key)
		return "", false, nil
	}

	return entry.output, true, nil
}

// Put stores output in the cache
func (c *MemoryCache) Put(key, output string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Evict entries if cache is full
	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := c.now()
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}

	c.entries[key] = &cacheEntry{
		output:    output,
		storedAt:  now,
		expiresAt: expiresAt,
	}
	return nil
}

// Remove removes output from the cache
func (c *MemoryCache) Remove(key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, key)
	return nil
}

// Clear removes all entries from the cache
func (c *MemoryCache) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*cacheEntry)
	return nil
}

// Size returns the current number of cached entries
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.entries)
}

// Clean removes expired entries from the cache
func (c *MemoryCache) Clean() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if entry.isExpired(now) {
			delete(c.entries, key)
		}
	}
}

// evictOldest removes the oldest entry from the cache
func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.storedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.storedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
