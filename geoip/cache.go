package geoip

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// MemoryCache keeps every result for the lifetime of the process.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]*LookupResult
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]*LookupResult)}
}

func (c *MemoryCache) Get(key string) (*LookupResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *MemoryCache) Put(key string, value *LookupResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// LRUCache holds at most size results, evicting the least recently used.
type LRUCache struct {
	items *lru.Cache[string, *LookupResult]
}

func NewLRUCache(size int) (*LRUCache, error) {
	items, err := lru.New[string, *LookupResult](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{items: items}, nil
}

func (c *LRUCache) Get(key string) (*LookupResult, bool) {
	return c.items.Get(key)
}

func (c *LRUCache) Put(key string, value *LookupResult) {
	c.items.Add(key, value)
}

func (c *LRUCache) Len() int {
	return c.items.Len()
}

// NewCache picks the cache implementation for conf.
func NewCache(conf Config) Cache {
	if conf.CacheSize <= 0 {
		return NewMemoryCache()
	}

	c, err := NewLRUCache(conf.CacheSize)
	if err != nil {
		log.Error().Err(err).Int("size", conf.CacheSize).Msg("Failed to create lru cache, falling back to memory cache")

		return NewMemoryCache()
	}
	log.Info().Int("size", conf.CacheSize).Msg("Using bounded lookup cache")

	return c
}
