package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
)

// sqlCache holds the queries shared by the SQL-backed caches.
// Timestamps are stored as unix seconds so both dialects compare them the same way.
type sqlCache struct {
	db      *sql.DB
	name    string
	upsert  string
	logger  *zap.Logger
	janitor *janitor
	now     func() time.Time
}

func newSQLCache(db *sql.DB, name, upsert string, logger *zap.Logger, cleanupFreq time.Duration) *sqlCache {
	c := &sqlCache{
		db:     db,
		name:   name,
		upsert: upsert,
		logger: logger,
		now:    time.Now,
	}
	c.janitor = startJanitor(cleanupFreq, logger, c.Cleanup)
	return c
}

// Get retrieves an unexpired entry by key
func (c *sqlCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	var entry core.CacheEntry
	var createdAt, expiresAt int64

	err := c.db.QueryRowContext(ctx, `
		SELECT cache_key, result, depth, score, created_at, expires_at
		FROM forward_cache
		WHERE cache_key = ? AND expires_at > ?
	`, key, c.now().Unix()).Scan(&entry.Key, &entry.Result, &entry.Depth, &entry.Score, &createdAt, &expiresAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	entry.CreatedAt = time.Unix(createdAt, 0)
	entry.ExpiresAt = time.Unix(expiresAt, 0)
	return &entry, nil
}

// Set stores or replaces a cache entry
func (c *sqlCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	if entry == nil || entry.Key == "" {
		return errors.New("cache entry requires a key")
	}

	_, err := c.db.ExecContext(ctx, c.upsert,
		entry.Key, entry.Result, entry.Depth, entry.Score,
		entry.CreatedAt.Unix(), entry.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *sqlCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM forward_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *sqlCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM forward_cache WHERE expires_at <= ?`, c.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// Stop halts the janitor and closes the database connection
func (c *sqlCache) Stop() {
	if !c.janitor.halt() {
		return
	}
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close "+c.name+" database", zap.Error(err))
	}
}
