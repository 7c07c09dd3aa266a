package db

import (
	"bigfootds/auth-api/config"
	"bigfootds/auth-api/internal/model"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "database.db?_foreign_keys=on", sqliteDSN("database.db"))
	assert.Equal(t, "file:x?mode=memory&_foreign_keys=on", sqliteDSN("file:x?mode=memory"))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(config.DBConfig{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestNew_Sqlite(t *testing.T) {
	if inDocker() {
		t.Skip("sqlite files have to be mounted inside docker")
	}

	conn, err := New(config.DBConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, Close(conn)) })

	for _, table := range []any{model.User{}, model.OAuthIdentity{}, model.SingleUseToken{}, model.ResendRequest{}} {
		assert.True(t, conn.Migrator().HasTable(table))
	}

	var fk int
	require.NoError(t, conn.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}
