package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/bucketfs"
	"github.com/sagarc03/bucketfs/database/internal/schema"
)

var cacheTableSchema = schema.Table{
	"name":        {Type: "text"},
	"size_bytes":  {Type: "bigint"},
	"modified_at": {Type: "timestamp with time zone", Nullable: true},
	"updated_at":  {Type: "timestamp with time zone"},
	"deleted_at":  {Type: "timestamp with time zone", Nullable: true},
}

// ValidateSchema checks that the cache tables exist with the expected columns.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables bucketfs.Tables) error {
	if err := validateTableSchema(ctx, pool, tables.Cache, cacheTableSchema); err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Cache, err)
	}
	return nil
}

func validateTableSchema(ctx context.Context, pool *pgxpool.Pool, tableName string, expected schema.Table) error {
	if !bucketfs.IsValidTableName(tableName) {
		return fmt.Errorf("validate table schema: invalid table name: %s", tableName)
	}

	exists, err := tableExists(ctx, pool, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}
	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", tableName)
	}

	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer rows.Close()

	actual := schema.Table{}
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actual[name] = schema.Column{Type: dataType, Nullable: nullable == "YES"}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate table schema: rows error: %w", err)
	}

	return schema.Compare(tableName, expected, actual)
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = current_schema()
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return exists, nil
}
