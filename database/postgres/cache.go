// Package postgres implements bucketfs.MetadataCache on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/bucketfs"
)

// Cache stores object metadata in a PostgreSQL table. Removed names are kept as
// tombstones so the cache can answer Absent.
type Cache struct {
	pool      *pgxpool.Pool
	tableName string
}

var _ bucketfs.MetadataCache = (*Cache)(nil)

// NewCache returns a cache on pool. The table must already be migrated.
func NewCache(pool *pgxpool.Pool, tables bucketfs.Tables) (*Cache, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new cache: %w", err)
	}

	return &Cache{pool: pool, tableName: pgx.Identifier{tables.Cache}.Sanitize()}, nil
}

// Ping verifies database connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Exists reports Present for live rows, Absent for tombstones and Unknown otherwise.
func (c *Cache) Exists(ctx context.Context, name string) bucketfs.Existence {
	query := fmt.Sprintf(`SELECT deleted_at IS NULL FROM %s WHERE name = $1`, c.tableName)

	var live bool
	if err := c.pool.QueryRow(ctx, query, name).Scan(&live); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.Warn("cache lookup failed", "name", name, "err", err)
		}
		return bucketfs.Unknown
	}

	if live {
		return bucketfs.Present
	}
	return bucketfs.Absent
}

// Size returns the cached size of a live, non-placeholder row.
func (c *Cache) Size(ctx context.Context, name string) (int64, bool) {
	size, mtime, ok := c.get(ctx, name)
	if !ok || mtime == nil {
		return 0, false
	}
	return size, true
}

// ModifiedTime returns the cached modification time of a live, non-placeholder row.
func (c *Cache) ModifiedTime(ctx context.Context, name string) (time.Time, bool) {
	_, mtime, ok := c.get(ctx, name)
	if !ok || mtime == nil {
		return time.Time{}, false
	}
	return mtime.UTC(), true
}

func (c *Cache) get(ctx context.Context, name string) (int64, *time.Time, bool) {
	query := fmt.Sprintf(`
		SELECT size_bytes, modified_at
		FROM %s
		WHERE name = $1 AND deleted_at IS NULL
	`, c.tableName)

	var size int64
	var mtime *time.Time
	if err := c.pool.QueryRow(ctx, query, name).Scan(&size, &mtime); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.Warn("cache lookup failed", "name", name, "err", err)
		}
		return 0, nil, false
	}
	return size, mtime, true
}

// Save upserts the row for name. A zero mtime stores a placeholder.
func (c *Cache) Save(ctx context.Context, name string, size int64, mtime time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, size_bytes, modified_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET size_bytes = EXCLUDED.size_bytes,
			modified_at = EXCLUDED.modified_at,
			updated_at = NOW(),
			deleted_at = NULL
	`, c.tableName)

	var modifiedAt *time.Time
	if !mtime.IsZero() {
		modifiedAt = &mtime
	}

	if _, err := c.pool.Exec(ctx, query, name, size, modifiedAt); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Remove turns the row for name into a tombstone.
func (c *Cache) Remove(ctx context.Context, name string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, size_bytes, modified_at, deleted_at)
		VALUES ($1, 0, NULL, NOW())
		ON CONFLICT (name) DO UPDATE
		SET size_bytes = 0,
			modified_at = NULL,
			updated_at = NOW(),
			deleted_at = NOW()
	`, c.tableName)

	if _, err := c.pool.Exec(ctx, query, name); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Forget deletes the row for name, tombstone included.
func (c *Cache) Forget(ctx context.Context, name string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE name = $1`, c.tableName)

	if _, err := c.pool.Exec(ctx, query, name); err != nil {
		return fmt.Errorf("forget: %w", err)
	}
	return nil
}

// PurgeTombstones deletes tombstones older than before and returns how many were removed.
func (c *Cache) PurgeTombstones(ctx context.Context, before time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE deleted_at IS NOT NULL AND deleted_at < $1`, c.tableName)

	tag, err := c.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("purge tombstones: %w", err)
	}
	return tag.RowsAffected(), nil
}
