package dnstrace

import "sync"

// Cache stores completed traces for the lifetime of one engine
// instance. Entries never expire within a run — a run is short-lived,
// and re-resolving the same hostname would overwrite with an
// equivalent result anyway, so writes are idempotent and a sync.Map
// is all the synchronization needed.
//
// The cache is an explicit object owned by the engine, never a hidden
// process singleton; tests inject a fresh or pre-seeded cache.
type Cache struct {
	entries sync.Map // hostname -> *Result
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached trace for hostname, if present.
func (c *Cache) Get(hostname string) (*Result, bool) {
	v, ok := c.entries.Load(normalize(hostname))
	if !ok {
		return nil, false
	}
	return v.(*Result), true
}

// Put stores a trace result for hostname.
func (c *Cache) Put(hostname string, result *Result) {
	c.entries.Store(normalize(hostname), result)
}

// Len returns the number of cached hostnames.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
