package fileRepo_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"cloud-storage/internal/repository/fileRepo"
	"cloud-storage/pkg/database/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a throwaway PostgreSQL and applies the migrations.
// Set TEST_INTEGRATION to run it.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("TEST_INTEGRATION not set")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		tcpostgres.WithDatabase("storage_test"),
		tcpostgres.WithUsername("storage"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	portNum, err := strconv.ParseUint(port.Port(), 10, 16)
	require.NoError(t, err)

	cfg := postgres.Config{
		Host:     host,
		Port:     uint16(portNum),
		Username: "storage",
		Password: "test-password",
		Database: "storage_test",
		SSLMode:  "disable",
	}
	_, err = postgres.Migrate(cfg)
	require.NoError(t, err)

	pool, err := postgres.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestFileRepository_Postgres(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()

	var ownerA, ownerB uint32
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ('alice', 'a@example.com', 'x') RETURNING id`,
	).Scan(&ownerA))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ('bobby', 'b@example.com', 'x') RETURNING id`,
	).Scan(&ownerB))

	runRepositoryTests(t, fileRepo.New(pool), ownerA, ownerB)
}
