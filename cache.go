package bucketfs

import (
	"context"
	"sync"
	"time"
)

// Existence is the three-valued answer a metadata cache gives about a key.
type Existence int

const (
	// Unknown means the cache has no opinion and the transport must be asked.
	Unknown Existence = iota
	// Present means the object is known to exist.
	Present
	// Absent means the object is known not to exist.
	Absent
)

func (e Existence) String() string {
	switch e {
	case Present:
		return "present"
	case Absent:
		return "absent"
	default:
		return "unknown"
	}
}

// MetadataCache is a key to (existence, size, mtime) store consulted before network calls.
// Implementations must be safe for concurrent use.
//
// Read failures are not errors: they are reported as Unknown (or ok == false) so the
// caller falls through to the network.
type MetadataCache interface {
	// Exists reports what the cache knows about name.
	Exists(ctx context.Context, name string) Existence

	// Size returns the cached size. ok is false when unknown or when the entry is a placeholder.
	Size(ctx context.Context, name string) (size int64, ok bool)

	// ModifiedTime returns the cached modification time. ok is false when unknown
	// or when the entry is a placeholder.
	ModifiedTime(ctx context.Context, name string) (mtime time.Time, ok bool)

	// Save records size and mtime for name, replacing any previous entry.
	// A zero mtime records a placeholder for an in-flight upload.
	Save(ctx context.Context, name string, size int64, mtime time.Time) error

	// Remove records that name was deleted. Caches that can remember deletions
	// answer Absent afterwards; others answer Unknown.
	Remove(ctx context.Context, name string) error

	// Forget drops whatever the cache holds for name so it answers Unknown.
	Forget(ctx context.Context, name string) error
}

// CacheEntry is one cached record.
type CacheEntry struct {
	Name  string
	Size  int64
	MTime time.Time
}

// IsPlaceholder reports whether the entry marks an upload that has not completed.
func (e CacheEntry) IsPlaceholder() bool {
	return e.MTime.IsZero()
}

// NopCache has no opinion about anything.
type NopCache struct{}

func (NopCache) Exists(context.Context, string) Existence { return Unknown }
func (NopCache) Size(context.Context, string) (int64, bool) { return 0, false }
func (NopCache) ModifiedTime(context.Context, string) (time.Time, bool) { return time.Time{}, false }
func (NopCache) Save(context.Context, string, int64, time.Time) error { return nil }
func (NopCache) Remove(context.Context, string) error { return nil }
func (NopCache) Forget(context.Context, string) error { return nil }

// MemoryCache is an in-process MetadataCache. Removed keys are remembered as Absent.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	removed map[string]struct{}
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]CacheEntry),
		removed: make(map[string]struct{}),
	}
}

func (c *MemoryCache) Exists(_ context.Context, name string) Existence {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.entries[name]; ok {
		return Present
	}
	if _, ok := c.removed[name]; ok {
		return Absent
	}
	return Unknown
}

func (c *MemoryCache) Size(_ context.Context, name string) (int64, bool) {
	e, ok := c.get(name)
	if !ok {
		return 0, false
	}
	return e.Size, true
}

func (c *MemoryCache) ModifiedTime(_ context.Context, name string) (time.Time, bool) {
	e, ok := c.get(name)
	if !ok {
		return time.Time{}, false
	}
	return e.MTime, true
}

func (c *MemoryCache) Save(_ context.Context, name string, size int64, mtime time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[name] = CacheEntry{Name: name, Size: size, MTime: mtime}
	delete(c.removed, name)
	return nil
}

func (c *MemoryCache) Remove(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, name)
	c.removed[name] = struct{}{}
	return nil
}

func (c *MemoryCache) Forget(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, name)
	delete(c.removed, name)
	return nil
}

// get returns a populated entry; placeholders are reported as missing.
func (c *MemoryCache) get(name string) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[name]
	if !ok || e.IsPlaceholder() {
		return CacheEntry{}, false
	}
	return e, true
}
