// Package app opens the backing stores selected by configuration. It is
// shared by the service and the operator commands.
package app

import (
	"context"
	"fmt"

	"cloud-storage/internal/config"
	"cloud-storage/internal/model/fileInfo"
	"cloud-storage/internal/model/user"
	"cloud-storage/internal/repository/fileRepo"
	"cloud-storage/internal/repository/userRepo"
	"cloud-storage/internal/service/authService"
	"cloud-storage/internal/service/fileService"
	"cloud-storage/internal/service/sweepService"
	"cloud-storage/pkg/database/postgres"
	"cloud-storage/pkg/database/sqlite"
	"cloud-storage/pkg/logger"

	"go.uber.org/zap"
)

type FileRepository interface {
	fileService.Repository
	sweepService.Repository
}

type Repositories struct {
	Users authService.UserRepository
	Files FileRepository
	Ping  func(ctx context.Context) error
	Close func()
}

// OpenRepositories connects to the configured database. Postgres schemas are
// migrated before the pool is opened; SQLite tables are auto-migrated.
func OpenRepositories(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := sqlite.New(cfg.SQLite, &user.User{}, &fileInfo.File{})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		return &Repositories{
			Users: userRepo.NewGorm(db),
			Files: fileRepo.NewGorm(db),
			Ping:  sqlDB.PingContext,
			Close: func() { _ = sqlDB.Close() },
		}, nil

	default:
		version, err := postgres.Migrate(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		logger.GetLogger(ctx).Info("database migrated", zap.Uint("version", version))

		pool, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Users: userRepo.New(pool),
			Files: fileRepo.New(pool),
			Ping:  pool.Ping,
			Close: pool.Close,
		}, nil
	}
}
