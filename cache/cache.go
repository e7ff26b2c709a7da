// Package cache implements the shared result cache described in §4.3 of
// the core specification: a concurrent mapping from raw request line to
// computed result, with many-reader/single-writer semantics and no
// eviction.
package cache

import "sync"

// Result is a computed task result: either a byte, or the "uncomputable"
// sentinel recording that parsing failed for the request line this
// result is keyed by.
type Result struct {
	Value        byte
	Uncomputable bool
}

// Uncomputable is the sentinel value cached against a request line whose
// parse failed, so repeated malformed lines are cheap to re-answer.
var Uncomputable = Result{Uncomputable: true}

// Cache is the process-wide, shared result cache. Zero value is not
// usable; construct with New. Safe for concurrent use by many readers
// and writers.
type Cache struct {
	mu sync.RWMutex
	m  map[string]Result
}

// New returns an empty cache, created once at acceptor startup and
// shared by reference with every connection handler and compute job for
// the lifetime of the process.
func New() *Cache {
	return &Cache{m: make(map[string]Result)}
}

// Lookup returns the cached result for key and true if present, under a
// shared (reader) acquisition. Many lookups may proceed in parallel with
// each other and are only excluded by a concurrent Insert.
func (c *Cache) Lookup(key string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.m[key]
	return r, ok
}

// Insert unconditionally stores value for key under an exclusive
// (writer) acquisition, overwriting any prior value. Two concurrent
// compute jobs racing to insert the same key is expected and harmless:
// last writer wins, and since the task executor is deterministic in
// (type, seed), both writers' values are equal for any well-formed key.
func (c *Cache) Insert(key string, value Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

// Len reports the number of distinct keys currently cached. Intended for
// diagnostics/logging only; the count can change the instant it is
// observed.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
