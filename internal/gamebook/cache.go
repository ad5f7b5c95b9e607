package gamebook

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Snapshot is an immutable view of a cache at one version.
type Snapshot[T any] struct {
	Items     []T
	Version   uint64
	FetchedAt time.Time
	// Key identifies what the listing was fetched for, e.g. the source page of
	// a link listing. Zero for unkeyed listings.
	Key int64
}

// Cache keeps the most recent listing of one kind. Every Replace or
// Invalidate bumps the version, so positions captured from an older snapshot
// can be detected as stale.
type Cache[T any] struct {
	mu        sync.RWMutex
	items     []T
	version   uint64
	fetchedAt time.Time
	key       int64
	now       func() time.Time
}

// NewCache constructs an empty cache.
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{now: time.Now}
}

// Replace stores a copy of items under key and returns the resulting snapshot.
func (c *Cache[T]) Replace(key int64, items []T) Snapshot[T] {
	copied := make([]T, len(items))
	copy(copied, items)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = copied
	c.key = key
	c.version++
	c.fetchedAt = c.now()

	return c.snapshotLocked()
}

// Invalidate drops the cached items.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.key = 0
	c.version++
	c.fetchedAt = time.Time{}
}

// Snapshot returns the current contents.
func (c *Cache[T]) Snapshot() Snapshot[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.snapshotLocked()
}

// Version returns the current version.
func (c *Cache[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.version
}

// At resolves a position captured from the snapshot with the given version.
func (c *Cache[T]) At(version uint64, index int) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	if version != c.version || c.items == nil {
		return zero, eris.Wrapf(ErrStaleCache, "snapshot version %d, current %d", version, c.version)
	}
	if index < 0 || index >= len(c.items) {
		return zero, eris.Wrapf(ErrIndexOutOfRange, "index %d of %d", index, len(c.items))
	}

	return c.items[index], nil
}

func (c *Cache[T]) snapshotLocked() Snapshot[T] {
	items := make([]T, len(c.items))
	copy(items, c.items)

	return Snapshot[T]{
		Items:     items,
		Version:   c.version,
		FetchedAt: c.fetchedAt,
		Key:       c.key,
	}
}
