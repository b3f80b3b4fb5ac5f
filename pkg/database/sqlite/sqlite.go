// Package sqlite opens a gorm handle on the pure-Go SQLite driver. It backs
// single-node deployments and the service-level tests.
package sqlite

import (
	"fmt"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN string `env:"SQLITE_DSN" env-default:"file:cloud-storage.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"`
}

// New opens the database and migrates the given models.
func New(cfg Config, models ...any) (*gorm.DB, error) {
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        cfg.DSN,
		}),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
		}
	}
	return db, nil
}
