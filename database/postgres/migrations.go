package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/bucketfs"
)

// Migrate creates the cache tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables bucketfs.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := createCacheTable(ctx, pool, tables.Cache); err != nil {
		return fmt.Errorf("migrate up %s: %w", tables.Cache, err)
	}
	return nil
}

// DropTables drops the cache tables.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables bucketfs.Tables) error {
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s", pgx.Identifier{tables.Cache}.Sanitize())
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("migrate down %s: %w", tables.Cache, err)
	}
	return nil
}

func createCacheTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexDeletedAt := pgx.Identifier{fmt.Sprintf("idx_%s_deleted_at", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name TEXT PRIMARY KEY,
			size_bytes BIGINT NOT NULL,
			modified_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (deleted_at)
		WHERE (deleted_at IS NOT NULL);
	`,
		quotedTable,
		indexDeletedAt, quotedTable,
	)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}
