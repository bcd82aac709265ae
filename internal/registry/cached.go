// Package registry puts a TTL cache in front of account and category lookups.
package registry

import (
	"context"
	"strconv"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ports"
)

const defaultCacheSize = 512

// Source is any registry backend: the SQLite tables, the memory store or the REST client.
type Source interface {
	ports.AccountLookup
	ports.CategoryLookup
}

// Cached serves lookups from an LRU cache. Errors are never cached.
type Cached struct {
	source     Source
	accounts   *cache.LRUCache[core.Account]
	categories *cache.LRUCache[core.Category]
}

func NewCached(source Source, ttl time.Duration) *Cached {
	return &Cached{
		source:     source,
		accounts:   cache.NewLRUCache[core.Account](defaultCacheSize, ttl),
		categories: cache.NewLRUCache[core.Category](defaultCacheSize, ttl),
	}
}

// Register hands both caches to m for periodic expiry sweeps.
func (c *Cached) Register(m *cache.Manager) {
	m.Register(c.accounts)
	m.Register(c.categories)
}

func (c *Cached) Account(ctx context.Context, id int64) (core.Account, error) {
	key := strconv.FormatInt(id, 10)
	if a, ok := c.accounts.Get(key); ok {
		return a, nil
	}
	a, err := c.source.Account(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	c.accounts.Set(key, a)
	return a, nil
}

func (c *Cached) Category(ctx context.Context, id int64) (core.Category, error) {
	key := strconv.FormatInt(id, 10)
	if cat, ok := c.categories.Get(key); ok {
		return cat, nil
	}
	cat, err := c.source.Category(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	c.categories.Set(key, cat)
	return cat, nil
}

// Invalidate drops every cached entry.
func (c *Cached) Invalidate() {
	c.accounts.Purge()
	c.categories.Purge()
}
