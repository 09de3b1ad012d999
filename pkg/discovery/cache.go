package discovery

import (
	"context"

	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// ObjectCache holds the materialised objects of one scripting session,
// keyed by urn. It creates entries on demand through Resolve.
//
// ObjectCache is not safe for concurrent use.
type ObjectCache struct {
	objects map[urn.Urn]core.Object
}

// NewObjectCache returns an empty cache.
func NewObjectCache() *ObjectCache {
	return &ObjectCache{objects: make(map[urn.Urn]core.Object)}
}

// Get returns the cached object for u.
func (c *ObjectCache) Get(u urn.Urn) (core.Object, bool) {
	if c == nil {
		return nil, false
	}
	obj, ok := c.objects[u]
	return obj, ok
}

// Put registers obj under u. The object's own urn is registered as well
// when it differs, so later lookups by either form hit.
func (c *ObjectCache) Put(u urn.Urn, obj core.Object) {
	if c.objects == nil {
		c.objects = make(map[urn.Urn]core.Object)
	}
	c.objects[u] = obj
	if cu := obj.Urn(); !cu.Equal(u) {
		c.objects[cu] = obj
	}
}

// Contains reports whether u is cached.
func (c *ObjectCache) Contains(u urn.Urn) bool {
	_, ok := c.Get(u)
	return ok
}

// Len returns the number of cached keys.
func (c *ObjectCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.objects)
}

// Resolve returns the cached object for u, asking server and caching the
// result on a miss.
func (c *ObjectCache) Resolve(ctx context.Context, server core.Server, u urn.Urn) (core.Object, error) {
	if obj, ok := c.Get(u); ok {
		return obj, nil
	}
	obj, err := server.GetObject(ctx, u)
	if err != nil {
		return nil, err
	}
	c.Put(u, obj)
	return obj, nil
}
