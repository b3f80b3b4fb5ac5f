package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT" env-default:"minio:9000"`
	Bucket    string `env:"MINIO_BUCKET_NAME" env-default:"storage"`
	AccessKey string `env:"MINIO_ACCESS_KEY" env-default:"admin"`
	SecretKey string `env:"MINIO_SECRET_KEY" env-default:"Study2005@"`
	UseSSL    bool   `env:"MINIO_USE_SSL" env-default:"false"`
}

// MinIOStore keeps blobs as objects in one bucket; the stored path is the key.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(ctx context.Context, cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, errExists := client.BucketExists(ctx, cfg.Bucket)
		if errExists != nil || !exists {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &MinIOStore{client: client, bucket: cfg.Bucket}, nil
}

func (m *MinIOStore) Put(ctx context.Context, p string, r io.Reader, size int64) (Info, error) {
	key, err := cleanPath(p)
	if err != nil {
		return Info{}, err
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return Info{}, fmt.Errorf("put object: %w", err)
	}
	return Info{Path: p, Size: info.Size, ModTime: info.LastModified}, nil
}

func (m *MinIOStore) Open(ctx context.Context, p string) (io.ReadCloser, Info, error) {
	key, err := cleanPath(p)
	if err != nil {
		return nil, Info{}, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, Info{}, m.wrap(p, err)
	}
	// GetObject is lazy; Stat forces the request so a missing key surfaces here.
	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, Info{}, m.wrap(p, err)
	}
	return obj, Info{Path: p, Size: st.Size, ModTime: st.LastModified}, nil
}

func (m *MinIOStore) Delete(ctx context.Context, p string) error {
	key, err := cleanPath(p)
	if err != nil {
		return err
	}
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func (m *MinIOStore) Stat(ctx context.Context, p string) (Info, error) {
	key, err := cleanPath(p)
	if err != nil {
		return Info{}, err
	}
	st, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return Info{}, m.wrap(p, err)
	}
	return Info{Path: p, Size: st.Size, ModTime: st.LastModified}, nil
}

func (m *MinIOStore) Walk(ctx context.Context, fn func(Info) error) error {
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("list objects: %w", obj.Err)
		}
		if err := fn(Info{Path: obj.Key, Size: obj.Size, ModTime: obj.LastModified}); err != nil {
			return err
		}
	}
	return nil
}

func (m *MinIOStore) Ping(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", m.bucket)
	}
	return nil
}

func (m *MinIOStore) wrap(p string, err error) error {
	if isNoSuchKey(err) {
		return fmt.Errorf("%s: %w", p, ErrNotExist)
	}
	return fmt.Errorf("minio %s: %w", p, err)
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
