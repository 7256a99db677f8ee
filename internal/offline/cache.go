package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrCacheMiss is returned when no snapshot is cached under a key.
var ErrCacheMiss = errors.New("cache miss")

// CacheEntry is the last known full snapshot of one collection.
type CacheEntry struct {
	Key      string          `json:"key"`
	Data     json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cachedAt"`
}

// Cache stores collection snapshots; every Put replaces the whole entry.
type Cache struct {
	db     *DB
	logger *zap.Logger
	now    func() time.Time
}

// NewCache builds a cache on top of an opened local store.
func NewCache(db *DB, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{db: db, logger: logger, now: time.Now}
}

// Put overwrites the snapshot stored under key.
func (c *Cache) Put(ctx context.Context, key string, data json.RawMessage) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO cached_data (key, data, cached_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at`,
		key, string(data), c.now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("cache %s: %w", key, err)
	}
	c.logger.Debug("collection cached", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// Get returns the snapshot stored under key or ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) (CacheEntry, error) {
	var (
		data     string
		cachedAt int64
	)
	err := c.db.QueryRowContext(ctx, `SELECT data, cached_at FROM cached_data WHERE key = ?`, key).Scan(&data, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CacheEntry{}, ErrCacheMiss
	}
	if err != nil {
		return CacheEntry{}, fmt.Errorf("read cache %s: %w", key, err)
	}

	return CacheEntry{Key: key, Data: json.RawMessage(data), CachedAt: time.Unix(0, cachedAt).UTC()}, nil
}

// Clear drops every cached snapshot.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cached_data`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}
