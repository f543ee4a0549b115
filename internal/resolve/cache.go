package resolve

import (
	"sync"

	"hgb/internal/source"
)

// cacheKey separates the text and raw readings of the same file: a text unit
// is decoded and line-indexed, a binary one is the file's exact bytes.
type cacheKey struct {
	abs    string
	binary bool
}

// Cache maps absolute paths and read mode to the unit they resolved to. It
// lives for one invocation, never evicts, and tolerates concurrent Get/Put;
// two goroutines racing on the same key both store a unit and the last write
// wins, which is harmless because a path's content does not change within
// one build.
type Cache struct {
	mu    sync.RWMutex
	byKey map[cacheKey]*source.Unit
}

// NewCache creates a Cache with the given capacity hint.
func NewCache(capHint int) *Cache {
	return &Cache{byKey: make(map[cacheKey]*source.Unit, capHint)}
}

// Get looks up a unit by absolute path and mode.
func (c *Cache) Get(abs string, binary bool) (*source.Unit, bool) {
	c.mu.RLock()
	u, ok := c.byKey[cacheKey{abs, binary}]
	c.mu.RUnlock()
	return u, ok
}

// lookupAny returns the first cached unit of the given mode among candidates.
func (c *Cache) lookupAny(candidates []string, binary bool) (*source.Unit, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, abs := range candidates {
		if u, ok := c.byKey[cacheKey{abs, binary}]; ok {
			return u, true
		}
	}
	return nil, false
}

// Put inserts a unit under its absolute path and mode.
func (c *Cache) Put(u *source.Unit) {
	if u == nil || u.Abs == "" {
		return
	}
	c.mu.Lock()
	c.byKey[cacheKey{u.Abs, u.Binary()}] = u
	c.mu.Unlock()
}

// Len returns the number of cached units.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}
