package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteCache stores external data responses in the cached_data table.
type SQLiteCache struct {
	store  *Store
	source string
}

// Cache returns a cache whose entries are tagged with source.
func (s *Store) Cache(source string) *SQLiteCache {
	return &SQLiteCache{store: s, source: source}
}

// Get returns the unexpired value stored under key.
func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	now := c.store.now().UTC().UnixMilli()
	err := c.store.observe("cache_get", func() error {
		return c.store.db.QueryRowContext(ctx, `
SELECT data FROM cached_data
WHERE cache_key = ? AND (expires_at = 0 OR expires_at > ?)
`, key, now).Scan(&data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}
	return data, true, nil
}

// Set stores value under key. A non-positive ttl never expires.
func (c *SQLiteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.store.now().UTC()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixMilli()
	}
	err := c.store.observe("cache_set", func() error {
		_, err := c.store.db.ExecContext(ctx, `
INSERT INTO cached_data (cache_key, data, source, expires_at, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET
	data = excluded.data,
	source = excluded.source,
	expires_at = excluded.expires_at,
	created_at = excluded.created_at
`, key, value, c.source, expiresAt, now.UnixMilli())
		return err
	})
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired cache entries and reports how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	var removed int64
	now := s.now().UTC().UnixMilli()
	err := s.observe("cache_purge", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM cached_data WHERE expires_at != 0 AND expires_at <= ?`, now)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return removed, nil
}
