// Package db opens the database the application persists its users and tokens in
package db

import (
	"bigfootds/auth-api/config"
	"bigfootds/auth-api/internal/model"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens the database described by c and migrates every table. The caller owns
// the returned handle and must Close it on shutdown.
func New(c config.DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch c.Driver {
	case "postgres":
		dialector = postgres.Open(c.DSN)
	case "sqlite":
		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if inDocker() {
			if _, err := os.Stat(c.DSN); errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/%s", c.DSN)
			}
		}

		dialector = sqlite.Open(sqliteDSN(c.DSN))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}

	return Open(dialector)
}

// Open connects through dialector and migrates the schema
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database, %w", err)
	}

	if dialector.Name() == "sqlite" {
		// SQLite allows a single writer. Funnel everything through one connection so
		// concurrent requests queue instead of failing with SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle, %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(model.User{}, model.OAuthIdentity{}, model.SingleUseToken{}, model.ResendRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}

// Close releases the connection pool behind db
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Foreign keys are off by default in SQLite and the cascades depend on them
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}

	return dsn + "?_foreign_keys=on"
}

func inDocker() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}
