package org

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// =============================================================================
// CACHED DIRECTORY - Read-through cache over a Directory
// =============================================================================

// Cached wraps a Directory with a short-lived read-through cache.
// Topology reads dominate generation runs (every eligibility call touches
// the service record), so even a small TTL removes most database round trips.
type Cached struct {
	inner Directory
	cache *gocache.Cache
}

// NewCached wraps dir with a cache using the given TTL.
func NewCached(dir Directory, ttl time.Duration) *Cached {
	return &Cached{
		inner: dir,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *Cached) GetUser(ctx context.Context, id UserID) (*User, error) {
	key := "user:" + string(id)
	if v, ok := c.cache.Get(key); ok {
		return v.(*User), nil
	}
	u, err := c.inner.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, u)
	return u, nil
}

func (c *Cached) GetService(ctx context.Context, id ServiceID) (*Service, error) {
	key := "service:" + string(id)
	if v, ok := c.cache.Get(key); ok {
		return v.(*Service), nil
	}
	s, err := c.inner.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, s)
	return s, nil
}

func (c *Cached) GetSecteur(ctx context.Context, id SecteurID) (*Secteur, error) {
	key := "secteur:" + string(id)
	if v, ok := c.cache.Get(key); ok {
		return v.(*Secteur), nil
	}
	s, err := c.inner.GetSecteur(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, s)
	return s, nil
}

func (c *Cached) ActiveUsers(ctx context.Context, filter ScopeFilter) ([]User, error) {
	key := filterKey(filter)
	if v, ok := c.cache.Get(key); ok {
		return v.([]User), nil
	}
	users, err := c.inner.ActiveUsers(ctx, filter)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, users)
	return users, nil
}

// Invalidate drops all cached entries. Call after topology mutations.
func (c *Cached) Invalidate() { c.cache.Flush() }

func filterKey(f ScopeFilter) string {
	svc, sec := "", ""
	if f.ServiceID != nil {
		svc = string(*f.ServiceID)
	}
	if f.SecteurID != nil {
		sec = string(*f.SecteurID)
	}
	return fmt.Sprintf("users:%s:%s:%v", svc, sec, f.Roles)
}
