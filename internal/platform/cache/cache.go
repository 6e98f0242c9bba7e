package cache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

// DefaultTTL is the expiry window applied when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// keyPrefix namespaces cache keys inside the shared local store.
const keyPrefix = "cache_"

// Entry is the persisted envelope around a cached value. Expiry is always
// Timestamp plus the configured TTL; both are Unix milliseconds.
type Entry[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
	Expiry    int64 `json:"expiry"`
}

// Cache is a single expiring slot for one logical value. It keeps an
// in-memory mirror for the current process and writes through to a
// LocalStore so the value survives restarts.
//
// The cache is best-effort, not authoritative: no operation returns an
// error. Persistence failures degrade to memory-only behavior and are
// logged at warn.
type Cache[T any] struct {
	key    string
	ttl    time.Duration
	store  LocalStore
	logger *observability.Logger

	mu     sync.Mutex
	mirror *T

	now func() time.Time
}

// New creates a Cache persisting under "cache_<name>" with the given TTL.
// A non-positive ttl falls back to DefaultTTL.
func New[T any](name string, ttl time.Duration, store LocalStore, logger *observability.Logger) *Cache[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[T]{
		key:    keyPrefix + name,
		ttl:    ttl,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Set stores data in the mirror and the local store. The TTL window restarts
// from now. Set never fails: if the store rejects the write the mirror still
// holds the value for the rest of the process lifetime.
func (c *Cache[T]) Set(data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mirror = &data

	entry := Entry[T]{
		Data:      data,
		Timestamp: c.now().UnixMilli(),
	}
	entry.Expiry = entry.Timestamp + c.ttl.Milliseconds()

	raw, err := json.Marshal(entry)
	if err != nil {
		c.warn("failed to serialize cache entry", err)
		return
	}
	if err := c.store.SetItem(c.key, string(raw)); err != nil {
		c.warn("failed to persist cache entry", err)
	}
}

// Get returns the cached value if present and unexpired. The mirror, when
// populated, is returned without consulting the store. A persisted entry
// that turns out to be expired is removed as a side effect; a corrupt entry
// reads as absent.
func (c *Cache[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mirror != nil {
		return *c.mirror, true
	}

	var zero T

	raw, ok, err := c.store.GetItem(c.key)
	if err != nil {
		c.warn("failed to read cache entry", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var entry Entry[T]
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.warn("failed to parse cache entry", err)
		return zero, false
	}

	if entry.Expiry <= c.now().UnixMilli() {
		c.clearLocked()
		return zero, false
	}

	c.mirror = &entry.Data
	return entry.Data, true
}

// Clear drops the mirror and the persisted entry. Clear never fails.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Cache[T]) clearLocked() {
	c.mirror = nil
	if err := c.store.RemoveItem(c.key); err != nil {
		c.warn("failed to remove cache entry", err)
	}
}

// Exists reports whether Get would return a value.
func (c *Cache[T]) Exists() bool {
	_, ok := c.Get()
	return ok
}

// Refresh re-stamps the current value, extending its TTL window. It is a
// no-op when the cache is empty.
func (c *Cache[T]) Refresh() {
	if data, ok := c.Get(); ok {
		c.Set(data)
	}
}

// TimeToExpiry returns the remaining TTL of the persisted entry without
// mutating any state. It reports false when no entry is persisted or the
// entry has already expired.
func (c *Cache[T]) TimeToExpiry() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok, err := c.store.GetItem(c.key)
	if err != nil || !ok {
		return 0, false
	}

	var entry Entry[T]
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return 0, false
	}

	remaining := entry.Expiry - c.now().UnixMilli()
	if remaining <= 0 {
		return 0, false
	}
	return time.Duration(remaining) * time.Millisecond, true
}

func (c *Cache[T]) warn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, "key", c.key, "error", err)
	}
}
