package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/bucketfs"
	"github.com/sagarc03/bucketfs/database/postgres"
	"github.com/sagarc03/bucketfs/database/sqlite"

	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultTable is the cache table name used when Config.Table is empty.
const DefaultTable = "bucketfs_cache"

// Config holds the configuration for connecting to a cache backend.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string `mapstructure:"type" yaml:"type"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn" yaml:"dsn"`
	// Table is the name of the cache table
	Table string `mapstructure:"table" yaml:"table,omitempty"`
}

// Cache is a SQL-backed metadata cache.
type Cache interface {
	bucketfs.MetadataCache
	// PurgeTombstones deletes removal markers older than before.
	PurgeTombstones(ctx context.Context, before time.Time) (int64, error)
}

// Connect establishes a connection to the configured database backend,
// runs migrations, validates the schema, and returns a Cache.
// The returned cleanup function should be called to close the connection.
func Connect(ctx context.Context, cfg Config) (Cache, func(), error) {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	tables := bucketfs.Tables{Cache: table}
	if err := tables.Validate(); err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	switch cfg.Type {
	case "sqlite":
		return connectSQLite(ctx, cfg.DSN, tables)
	case "postgres":
		return connectPostgres(ctx, cfg.DSN, tables)
	default:
		return nil, nil, fmt.Errorf("unsupported database type %q: %w", cfg.Type, bucketfs.ErrConfiguration)
	}
}

func connectSQLite(ctx context.Context, dsn string, tables bucketfs.Tables) (Cache, func(), error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	// An in-memory database exists per connection.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err = sqlite.Migrate(ctx, db, tables); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	if err = sqlite.ValidateSchema(ctx, db, tables); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("validate sqlite schema: %w", err)
	}

	cache, err := sqlite.NewCache(db, tables)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create sqlite cache: %w", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return cache, cleanup, nil
}

func connectPostgres(ctx context.Context, dsn string, tables bucketfs.Tables) (Cache, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err = postgres.Migrate(ctx, pool, tables); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	if err = postgres.ValidateSchema(ctx, pool, tables); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("validate postgres schema: %w", err)
	}

	cache, err := postgres.NewCache(pool, tables)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("create postgres cache: %w", err)
	}

	return cache, pool.Close, nil
}
