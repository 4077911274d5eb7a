// Package engagement applies user interactions (like, repost, follow, view)
// optimistically and repairs local state when the backend write fails.
package engagement

import (
	"sync"

	"chirp/internal/models"
)

type cacheKey struct {
	actor  string
	target string
	rel    models.Relation
}

// StateCache holds per-(actor, target, relation) interaction booleans,
// populated lazily as items become visible. Entries live for the UI item's
// lifetime; Forget drops them on teardown.
type StateCache struct {
	mu      sync.Mutex
	entries map[cacheKey]bool
}

// NewStateCache returns an empty cache.
func NewStateCache() *StateCache {
	return &StateCache{entries: make(map[cacheKey]bool)}
}

// Get returns the cached state and whether it is present.
func (c *StateCache) Get(actorID, targetID string, rel models.Relation) (value, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok = c.entries[cacheKey{actor: actorID, target: targetID, rel: rel}]
	return value, ok
}

// Set records the state for the tuple.
func (c *StateCache) Set(actorID, targetID string, rel models.Relation, value bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{actor: actorID, target: targetID, rel: rel}] = value
}

// Forget drops every entry for the target, for view teardown.
func (c *StateCache) Forget(targetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.target == targetID {
			delete(c.entries, k)
		}
	}
}
