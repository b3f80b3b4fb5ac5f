package blobstore_test

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"cloud-storage/internal/blobstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a live MinIO when MINIO_TEST_ENDPOINT is set, e.g. localhost:9000.
func TestMinIOStore(t *testing.T) {
	endpoint := os.Getenv("MINIO_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_TEST_ENDPOINT not set")
	}
	ctx := context.Background()

	s, err := blobstore.NewMinIOStore(ctx, blobstore.MinIOConfig{
		Endpoint:  endpoint,
		Bucket:    "cloud-storage-test",
		AccessKey: envOr("MINIO_TEST_ACCESS_KEY", "minioadmin"),
		SecretKey: envOr("MINIO_TEST_SECRET_KEY", "minioadmin"),
	})
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	path := blobstore.StoredPath(1, "minio.txt")
	info, err := s.Put(ctx, path, strings.NewReader("payload"), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size)

	rc, _, err := s.Open(ctx, path)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "payload", string(body))

	require.NoError(t, s.Delete(ctx, path))
	_, _, err = s.Open(ctx, path)
	assert.True(t, errors.Is(err, blobstore.ErrNotExist))
	assert.NoError(t, s.Delete(ctx, path))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
