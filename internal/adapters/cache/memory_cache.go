package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
)

var (
	// ErrNotFound is returned for keys with no stored result
	ErrNotFound = errors.New("cache entry not found")
	// ErrExpired is returned by the memory cache for entries past their TTL
	// that the janitor has not swept yet
	ErrExpired = errors.New("cache entry expired")
)

// MemoryCache keeps extraction results in a map guarded by a RWMutex
type MemoryCache struct {
	mu      sync.RWMutex
	results map[string]core.CacheEntry
	logger  *zap.Logger
	janitor *janitor
	now     func() time.Time
}

// NewMemoryCache creates a new in-memory cache swept every cleanupFreq
func NewMemoryCache(logger *zap.Logger, cleanupFreq time.Duration) *MemoryCache {
	c := &MemoryCache{
		results: make(map[string]core.CacheEntry),
		logger:  logger,
		now:     time.Now,
	}
	c.janitor = startJanitor(cleanupFreq, logger, c.Cleanup)
	return c
}

// Get returns a copy of the stored entry for key
func (c *MemoryCache) Get(_ context.Context, key string) (*core.CacheEntry, error) {
	c.mu.RLock()
	stored, ok := c.results[key]
	c.mu.RUnlock()

	switch {
	case !ok:
		return nil, ErrNotFound
	case c.now().After(stored.ExpiresAt):
		return nil, ErrExpired
	}

	stored.Result = append([]byte(nil), stored.Result...)
	return &stored, nil
}

// Set stores a copy of entry under entry.Key
func (c *MemoryCache) Set(_ context.Context, entry *core.CacheEntry) error {
	if entry == nil || entry.Key == "" {
		return errors.New("cache entry requires a key")
	}

	stored := *entry
	stored.Result = append([]byte(nil), entry.Result...)

	c.mu.Lock()
	c.results[entry.Key] = stored
	c.mu.Unlock()
	return nil
}

// Delete drops key
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.results, key)
	c.mu.Unlock()
	return nil
}

// Cleanup drops every entry past its expiry
func (c *MemoryCache) Cleanup(_ context.Context) error {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for key, stored := range c.results {
		if now.After(stored.ExpiresAt) {
			delete(c.results, key)
			removed++
		}
	}
	c.mu.Unlock()

	c.logger.Debug("Swept memory cache", zap.Int("expired_count", removed))
	return nil
}

// Len reports the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// Stop halts the janitor
func (c *MemoryCache) Stop() {
	c.janitor.halt()
}
