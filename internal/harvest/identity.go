package harvest

import "time"

// UnknownOwner is reported when an owner id is absent or cannot be resolved.
const UnknownOwner = "N/A"

// IdentityCache resolves owner ids to display names, caching successful
// lookups for the lifetime of the cache.
//
// Failed lookups are retried on every call when retryAfter is zero. With a
// positive retryAfter a failure is remembered and the id resolves to
// UnknownOwner without a lookup until that much time has passed.
// IdentityCache is not safe for concurrent use.
type IdentityCache struct {
	lookup     LookupFunc
	retryAfter time.Duration
	now        func() time.Time

	names  map[uint32]string
	failed map[uint32]time.Time
}

// NewIdentityCache returns a cache backed by lookup.
func NewIdentityCache(lookup LookupFunc, retryAfter time.Duration) *IdentityCache {
	return &IdentityCache{
		lookup:     lookup,
		retryAfter: retryAfter,
		now:        time.Now,
		names:      make(map[uint32]string),
		failed:     make(map[uint32]time.Time),
	}
}

// Resolve returns the display name for uid, or UnknownOwner.
func (c *IdentityCache) Resolve(uid uint32) string {
	if name, ok := c.names[uid]; ok {
		return name
	}
	if c.lookup == nil {
		return UnknownOwner
	}
	if at, ok := c.failed[uid]; ok && c.now().Sub(at) < c.retryAfter {
		return UnknownOwner
	}

	name, err := c.lookup(uid)
	if err != nil || name == "" {
		if c.retryAfter > 0 {
			c.failed[uid] = c.now()
		}
		return UnknownOwner
	}

	delete(c.failed, uid)
	c.names[uid] = name
	return name
}

// ResolveOwner is Resolve for an optional id.
func (c *IdentityCache) ResolveOwner(uid *uint32) string {
	if uid == nil {
		return UnknownOwner
	}
	return c.Resolve(*uid)
}

// Len returns the number of cached names.
func (c *IdentityCache) Len() int {
	return len(c.names)
}
