package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sagarc03/bucketfs"
	"github.com/sagarc03/bucketfs/database/internal/schema"
)

var cacheTableSchema = schema.Table{
	"name":        {Type: "text"},
	"size_bytes":  {Type: "integer"},
	"modified_at": {Type: "text", Nullable: true},
	"updated_at":  {Type: "text"},
	"deleted_at":  {Type: "text", Nullable: true},
}

// ValidateSchema checks that the cache tables exist with the expected columns.
func ValidateSchema(ctx context.Context, db *sql.DB, tables bucketfs.Tables) error {
	if err := validateTableSchema(ctx, db, tables.Cache, cacheTableSchema); err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Cache, err)
	}
	return nil
}

func validateTableSchema(ctx context.Context, db *sql.DB, tableName string, expected schema.Table) error {
	if !bucketfs.IsValidTableName(tableName) {
		return fmt.Errorf("validate table schema: invalid table name: %s", tableName)
	}

	exists, err := tableExists(ctx, db, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}
	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", tableName)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(tableName)))
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	actual := schema.Table{}
	for rows.Next() {
		var (
			cid       int
			name      string
			dataType  string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actual[name] = schema.Column{Type: dataType, Nullable: notNull == 0}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate table schema: rows error: %w", err)
	}

	return schema.Compare(tableName, expected, actual)
}

func tableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, tableName).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return true, nil
}
