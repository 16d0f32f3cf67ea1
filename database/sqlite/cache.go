// Package sqlite implements bucketfs.MetadataCache on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sagarc03/bucketfs"
)

// timeFormat is fixed width so stored timestamps compare correctly as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Cache stores object metadata in a SQLite table. Removed names are kept as
// tombstones so the cache can answer Absent.
type Cache struct {
	db        *sql.DB
	tableName string
	now       func() time.Time
}

var _ bucketfs.MetadataCache = (*Cache)(nil)

// NewCache returns a cache on db. The table must already be migrated.
func NewCache(db *sql.DB, tables bucketfs.Tables) (*Cache, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new cache: %w", err)
	}

	return &Cache{db: db, tableName: tables.Cache, now: time.Now}, nil
}

// Exists reports Present for live rows, Absent for tombstones and Unknown otherwise.
func (c *Cache) Exists(ctx context.Context, name string) bucketfs.Existence {
	query := fmt.Sprintf(`SELECT deleted_at IS NULL FROM %s WHERE name = ?`, quoteIdentifier(c.tableName)) //nolint:gosec // G201: table name is validated

	var live bool
	err := c.db.QueryRowContext(ctx, query, name).Scan(&live)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
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
	if !ok || mtime.IsZero() {
		return 0, false
	}
	return size, true
}

// ModifiedTime returns the cached modification time of a live, non-placeholder row.
func (c *Cache) ModifiedTime(ctx context.Context, name string) (time.Time, bool) {
	_, mtime, ok := c.get(ctx, name)
	if !ok || mtime.IsZero() {
		return time.Time{}, false
	}
	return mtime, true
}

func (c *Cache) get(ctx context.Context, name string) (int64, time.Time, bool) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT size_bytes, modified_at FROM %s WHERE name = ? AND deleted_at IS NULL`,
		quoteIdentifier(c.tableName))

	var size int64
	var modifiedAt sql.NullString
	err := c.db.QueryRowContext(ctx, query, name).Scan(&size, &modifiedAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("cache lookup failed", "name", name, "err", err)
		}
		return 0, time.Time{}, false
	}

	if !modifiedAt.Valid {
		return size, time.Time{}, true
	}
	mtime, err := time.Parse(time.RFC3339Nano, modifiedAt.String)
	if err != nil {
		slog.Warn("cache row has bad modified_at", "name", name, "value", modifiedAt.String)
		return 0, time.Time{}, false
	}
	return size, mtime, true
}

// Save upserts the row for name. A zero mtime stores a placeholder.
func (c *Cache) Save(ctx context.Context, name string, size int64, mtime time.Time) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (name, size_bytes, modified_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, NULL)
		ON CONFLICT (name) DO UPDATE
		SET size_bytes = excluded.size_bytes,
			modified_at = excluded.modified_at,
			updated_at = excluded.updated_at,
			deleted_at = NULL`, quoteIdentifier(c.tableName))

	var modifiedAt sql.NullString
	if !mtime.IsZero() {
		modifiedAt = sql.NullString{String: mtime.UTC().Format(timeFormat), Valid: true}
	}

	now := c.now().UTC().Format(timeFormat)
	if _, err := c.db.ExecContext(ctx, query, name, size, modifiedAt, now); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Remove turns the row for name into a tombstone.
func (c *Cache) Remove(ctx context.Context, name string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (name, size_bytes, modified_at, updated_at, deleted_at)
		VALUES (?, 0, NULL, ?, ?)
		ON CONFLICT (name) DO UPDATE
		SET size_bytes = 0,
			modified_at = NULL,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at`, quoteIdentifier(c.tableName))

	now := c.now().UTC().Format(timeFormat)
	if _, err := c.db.ExecContext(ctx, query, name, now, now); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Forget deletes the row for name, tombstone included.
func (c *Cache) Forget(ctx context.Context, name string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE name = ?`, quoteIdentifier(c.tableName))

	if _, err := c.db.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("forget: %w", err)
	}
	return nil
}

// PurgeTombstones deletes tombstones older than before and returns how many were removed.
func (c *Cache) PurgeTombstones(ctx context.Context, before time.Time) (int64, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE deleted_at IS NOT NULL AND deleted_at < ?`,
		quoteIdentifier(c.tableName))

	res, err := c.db.ExecContext(ctx, query, before.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("purge tombstones: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge tombstones: %w", err)
	}
	return n, nil
}
