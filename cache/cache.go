// Package cache provides the content-addressable deduplication layer used
// during a document build. Resources with the same logical content resolve
// to the same indirect object no matter how many pages request them, and a
// resource is built at most once even under concurrent page builds.
package cache

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Marisada/krilla/ir/raw"
)

// BuildFunc produces the object graph for a missing resource and returns
// the reference of its root object. It may allocate any number of objects
// and may recursively consult the cache for sub-resources under different
// keys.
type BuildFunc func() (raw.ObjectRef, error)

// Stats counts cache activity for one build.
type Stats struct {
	Hits   int64
	Misses int64
	Builds int64
}

// Cache maps ContentKeys to resolved object references. The zero value is
// not usable; call New. A cache instance is scoped to one document build;
// references are meaningless outside the store they were allocated from.
type Cache struct {
	mu       sync.RWMutex
	resolved map[ContentKey]raw.ObjectRef
	flight   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	builds atomic.Int64
}

func New() *Cache {
	return &Cache{resolved: make(map[ContentKey]raw.ObjectRef)}
}

// GetOrBuild returns the object reference for key, invoking build exactly
// once per key across all concurrent callers. Callers that find a build in
// flight block until the owning caller resolves it and then observe the
// same reference. A failed build is not retained; the error is propagated
// to every waiter of that flight.
func (c *Cache) GetOrBuild(key ContentKey, build BuildFunc) (raw.ObjectRef, error) {
	c.mu.RLock()
	ref, ok := c.resolved[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return ref, nil
	}
	c.misses.Add(1)

	v, err, _ := c.flight.Do(key.String(), func() (any, error) {
		// The losing side of a race may arrive here after the winner
		// resolved the key.
		c.mu.RLock()
		ref, ok := c.resolved[key]
		c.mu.RUnlock()
		if ok {
			return ref, nil
		}

		c.builds.Add(1)
		ref, err := build()
		if err != nil {
			return raw.ObjectRef{}, err
		}
		c.mu.Lock()
		c.resolved[key] = ref
		c.mu.Unlock()
		return ref, nil
	})
	if err != nil {
		return raw.ObjectRef{}, err
	}
	return v.(raw.ObjectRef), nil
}

// Lookup returns the resolved reference for key without building.
func (c *Cache) Lookup(key ContentKey) (raw.ObjectRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref, ok := c.resolved[key]
	return ref, ok
}

// Len returns the number of resolved entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.resolved)
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Builds: c.builds.Load(),
	}
}
