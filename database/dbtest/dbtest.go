// Package dbtest opens a migrated in-memory database for tests.
package dbtest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace-backend/database"
)

// Open returns a fresh, migrated SQLite database with foreign keys enabled.
// The pool is limited to one connection, so never query the returned handle while a
// transaction started from it is still open.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), database.Config(zerolog.Nop()))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}
