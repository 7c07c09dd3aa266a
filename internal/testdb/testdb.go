// Package testdb opens throwaway databases for tests
package testdb

import (
	"bigfootds/auth-api/db"
	"testing"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const nameCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// New returns a migrated in-memory SQLite database that only the calling test
// sees. It's closed when the test ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	name := gonanoid.MustGenerate(nameCharset, 12)

	conn, err := db.Open(sqlite.Open("file:" + name + "?mode=memory&cache=shared&_foreign_keys=on"))
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close(conn)
	})

	return conn
}
