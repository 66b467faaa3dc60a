// Package labels caches mailbox label-name-to-id lookups for one
// processing session, so repeated actions on the same label cost a single
// remote call.
package labels

import (
	"context"
	"sync"
)

// Resolver resolves a label name to its mailbox id, creating the label if
// it does not exist.
type Resolver func(ctx context.Context, name string) (string, error)

// Cache is a concurrency-safe label-name-to-id cache over a Resolver.
type Cache struct {
	mu      sync.Mutex
	ids     map[string]string
	resolve Resolver
}

// New creates an empty cache backed by the given resolver.
func New(resolve Resolver) *Cache {
	return &Cache{
		ids:     make(map[string]string),
		resolve: resolve,
	}
}

// ID returns the id for a label name, resolving and caching it on first use.
// Resolution failures are not cached.
func (c *Cache) ID(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.ids[name]; ok {
		return id, nil
	}
	id, err := c.resolve(ctx, name)
	if err != nil {
		return "", err
	}
	c.ids[name] = id
	return id, nil
}
