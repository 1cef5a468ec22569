// Package media caches resolved playback items by server key and by
// resolved path, populating lazily from the media server.
package media

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/gfb107/plex-nmt-bridge/internal/plex"
)

// ErrNotFound reports a path that cannot be mapped back to a library item.
var ErrNotFound = errors.New("media: item not found")

// Fetcher is the minimal server surface needed to populate the cache.
type Fetcher interface {
	GetItem(ctx context.Context, key string) (*plex.Item, error)
	Prefix() string
}

// Resolver rewrites a fetched item's file path for the device.
type Resolver interface {
	Resolve(ctx context.Context, item *plex.Item)
}

// Cache maps lookup keys (server item key, or previously resolved device
// path) to the last-resolved item. Entries are never evicted; the bridge
// process lifetime bounds growth.
//
// The mutex is held across the miss-path fetch so two concurrent misses for
// one key perform exactly one upstream query and observe the same item.
type Cache struct {
	mu       sync.Mutex
	byKey    map[string]*plex.Item
	byPath   map[string]*plex.Item
	fetcher  Fetcher
	resolver Resolver
	logger   *log.Logger
}

func NewCache(fetcher Fetcher, resolver Resolver, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{
		byKey:    make(map[string]*plex.Item),
		byPath:   make(map[string]*plex.Item),
		fetcher:  fetcher,
		resolver: resolver,
		logger:   logger,
	}
}

// GetByKey returns the cached item for a server key, fetching and resolving
// it on first use.
func (c *Cache) GetByKey(ctx context.Context, key string) (*plex.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getByKeyLocked(ctx, key)
}

// GetByPath returns the cached item for a device path or streaming URL. On a
// miss the only recoverable case is a URL carrying the server's own prefix,
// which maps back to a key; anything else is ErrNotFound.
func (c *Cache) GetByPath(ctx context.Context, path string) (*plex.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.byPath[path]; ok {
		return item, nil
	}
	if item, ok := c.byKey[path]; ok {
		return item, nil
	}
	if prefix := c.fetcher.Prefix(); strings.HasPrefix(path, prefix) {
		return c.getByKeyLocked(ctx, strings.TrimPrefix(path, prefix))
	}
	return nil, ErrNotFound
}

// Put caches an already-constructed item under its key and file paths.
// Used when play-queue expansion has produced items the state poller will
// later look up by path.
func (c *Cache) Put(item *plex.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item.Key != "" {
		c.byKey[item.Key] = item
	}
	if item.File != "" {
		c.byPath[item.File] = item
	}
	if item.HTTPFile != "" {
		c.byPath[item.HTTPFile] = item
	}
}

func (c *Cache) getByKeyLocked(ctx context.Context, key string) (*plex.Item, error) {
	if item, ok := c.byKey[key]; ok {
		return item, nil
	}

	item, err := c.fetcher.GetItem(ctx, key)
	if err != nil {
		return nil, err
	}
	if item.Type == plex.TypeVideo {
		c.resolver.Resolve(ctx, item)
	}

	c.byKey[key] = item
	if item.Key != "" {
		c.byKey[item.Key] = item
	}
	if item.File != "" {
		c.byPath[item.File] = item
	}
	if item.HTTPFile != "" {
		c.byPath[item.HTTPFile] = item
	}
	return item, nil
}
