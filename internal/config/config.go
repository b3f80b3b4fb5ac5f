package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"cloud-storage/internal/access"
	"cloud-storage/internal/blobstore"
	"cloud-storage/internal/service/authService"
	"cloud-storage/pkg/database/postgres"
	"cloud-storage/pkg/database/redis"
	"cloud-storage/pkg/database/sqlite"
	"cloud-storage/pkg/middleware"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	HTTPPort        string        `env:"HTTP_PORT" env-default:"8080"`
	GRPCPort        string        `env:"GRPC_PORT" env-default:"50052"`
	DatabaseDriver  string        `env:"DATABASE_DRIVER" env-default:"postgres"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"15s"`

	Postgres postgres.Config
	SQLite   sqlite.Config
	Redis    redis.RedisConfig
	Storage  blobstore.Config
	Auth     authService.Config
	Access   access.Config
	Throttle middleware.ThrottleConfig
	CORS     middleware.CORSConfig
}

// Load reads path when it exists and the process environment otherwise.
// Values from the file are exported into the environment before it is read.
func Load(path string) (*Config, error) {
	var cfg Config

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config from %s: %w", path, err)
		}
	case errors.Is(statErr, os.ErrNotExist):
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read config from environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("cannot stat %s: %w", path, statErr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_TOKEN must be set")
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.Storage.Backend {
	case blobstore.BackendLocal, blobstore.BackendMinIO:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if _, _, err := c.Throttle.Rates(); err != nil {
		return err
	}
	return nil
}
