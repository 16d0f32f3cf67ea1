package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/bucketfs"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
}

// getTableMigrations returns all table migrations for the cache
func getTableMigrations(tables bucketfs.Tables) []TableMigration {
	return []TableMigration{
		{
			TableName: tables.Cache,
			Up:        createCacheTable(tables.Cache),
			Down:      dropTable(tables.Cache),
		},
	}
}

// Migrate creates the cache tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB, tables bucketfs.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

// DropTables drops the cache tables in reverse creation order.
func DropTables(ctx context.Context, db *sql.DB, tables bucketfs.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func createCacheTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexDeletedAt := quoteIdentifier(fmt.Sprintf("idx_%s_deleted_at", tableName))

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				name TEXT NOT NULL PRIMARY KEY,
				size_bytes INTEGER NOT NULL,
				modified_at TEXT,
				updated_at TEXT NOT NULL,
				deleted_at TEXT
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (deleted_at) WHERE deleted_at IS NOT NULL
		`, indexDeletedAt, quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index deleted_at: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", quotedTable)

		_, err := db.ExecContext(ctx, dropSQL)
		return err
	}
}
