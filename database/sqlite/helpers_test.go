package sqlite_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/sagarc03/bucketfs"
	"github.com/sagarc03/bucketfs/database/sqlite"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite" // SQLite driver
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// openTestDB opens an in-memory database. A single connection keeps every
// query on the same in-memory database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "failed to open")
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// setupTestCache creates a migrated cache with a unique table name for test isolation
func setupTestCache(t *testing.T) *sqlite.Cache {
	t.Helper()

	ctx := context.Background()
	db := openTestDB(t)
	tables := bucketfs.Tables{Cache: fmt.Sprintf("cache_%s", getRandomString(t))}

	require.NoError(t, sqlite.Migrate(ctx, db, tables), "failed to migrate")

	c, err := sqlite.NewCache(db, tables)
	require.NoError(t, err)

	return c
}
