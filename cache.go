package fetch

import "sync"

// cacheKey namespaces an identity by its source instance. Distinct source
// values are distinct namespaces even when they share a Name.
type cacheKey struct {
	source any
	id     any
}

// entry is a resolved result or its error marker. Once written for a key it
// is never invalidated within a run.
type entry struct {
	val any
	err error
}

// Cache maps (source, identity) to previously fetched results. The scheduler
// consults it before issuing any request and writes every round's results
// into it. A Cache is owned by one run at a time; callers may seed it with
// Prime and thread it across runs, but concurrent runs sharing a Cache need
// external coordination for the results to be meaningful as a whole (the map
// itself is mutex-guarded).
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]entry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]entry)}
}

// Size reports the number of cached (source, identity) entries, error markers
// included.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) lookup(k cacheKey) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	return e, ok
}

func (c *Cache) store(k cacheKey, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = e
}

// Prime seeds the cache with an already-known result, so a later run resolves
// the identity without touching the source.
func Prime[I comparable, A any](c *Cache, src Source[I, A], id I, val A) {
	c.store(cacheKey{source: src, id: id}, entry{val: val})
}

// Lookup reports the cached value for an identity, if the cache holds a
// successful result for it. Error markers report false.
func Lookup[I comparable, A any](c *Cache, src Source[I, A], id I) (A, bool) {
	e, ok := c.lookup(cacheKey{source: src, id: id})
	if !ok || e.err != nil {
		var zero A
		return zero, false
	}
	return value[A](e.val), true
}
