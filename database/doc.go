// Package database connects SQL-backed metadata caches.
//
// Two backends are supported: PostgreSQL through a pgx connection pool and SQLite
// through modernc.org/sqlite. Both keep one row per object name with its size and
// modification time. A NULL modification time marks an upload placeholder, and a
// removed name is kept as a tombstone so the cache can report it as absent.
//
// # Usage
//
//	cfg := database.Config{
//	    Type:  "sqlite",
//	    DSN:   "bucketfs.db",
//	    Table: "bucketfs_cache",
//	}
//
//	cache, cleanup, err := database.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
//
//	storage, err := bucketfs.New(client, bucketfs.Options{Cache: cache})
//
// Connect runs migrations and validates the schema before returning.
//
// # Subpackages
//
//   - database/postgres: PostgreSQL implementation using pgx
//   - database/sqlite: SQLite implementation using modernc.org/sqlite
package database
