package accounts

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Cache is a small, bounded account-by-id lookup cache that self-
// invalidates on any write under its watched accounts directory. It
// exists purely to avoid re-reading and re-parsing an account file on
// every ManageAPI dispatch that only needs the account by id; ConfigFS
// itself remains the source of truth.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]cacheEntry
	capacity int
	ttl      time.Duration

	watcher *fsnotify.Watcher
	done    chan struct{}
}

type cacheEntry struct {
	account  *Account
	cachedAt time.Time
}

// NewCache creates a Cache bounded to capacity entries with the given TTL,
// watching dir (the ConfigFS accounts/ directory) for external mutation.
// Watching is best-effort: if the watcher can't be created (e.g. inotify
// instance limits reached), the cache still works, just without proactive
// invalidation, and relies on TTL expiry instead.
func NewCache(dir string, capacity int, ttl time.Duration) *Cache {
	c := &Cache{
		entries:  make(map[string]cacheEntry, capacity),
		capacity: capacity,
		ttl:      ttl,
		done:     make(chan struct{}),
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return c
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return c
	}
	c.watcher = w
	go c.watchLoop()
	return c
}

func (c *Cache) watchLoop() {
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Create) != 0 {
				c.Clear()
			}
		case _, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Get returns the cached account by id, if present and unexpired.
func (c *Cache) Get(id string) (*Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.cachedAt) > c.ttl {
		return nil, false
	}
	return e.account, true
}

// Put stores an account in the cache, evicting an arbitrary entry first
// if the cache is at capacity. Map iteration order is unspecified, which
// is acceptable here: this is a bound on memory, not an LRU policy.
func (c *Cache) Put(a *Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capacity > 0 && len(c.entries) >= c.capacity {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[a.ID] = cacheEntry{account: a, cachedAt: time.Now()}
}

// Invalidate removes a single entry by id.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Clear removes every cached entry. Called whenever fsnotify observes a
// write under the watched directory, since we don't track which account
// file changed without re-reading it.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry, c.capacity)
}

// Close stops the watch loop, if one is running.
func (c *Cache) Close() error {
	close(c.done)
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}
