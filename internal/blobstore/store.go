// Package blobstore keeps file bytes. Records in the database refer to blobs by
// a relative stored path; the store never knows about owners or metadata.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// ErrNotExist is returned when a stored path has no blob behind it.
var ErrNotExist = errors.New("blob does not exist")

const (
	BackendLocal = "local"
	BackendMinIO = "minio"
)

type Config struct {
	Backend string `env:"STORAGE_BACKEND" env-default:"local"`
	Root    string `env:"STORAGE_PATH" env-default:"./media"`
	MinIO   MinIOConfig
}

type Info struct {
	Path    string
	Size    int64
	ModTime time.Time
}

type Store interface {
	// Put writes r under path, replacing nothing: callers always pass a fresh path.
	Put(ctx context.Context, path string, r io.Reader, size int64) (Info, error)
	Open(ctx context.Context, path string) (io.ReadCloser, Info, error)
	// Delete removes the blob. A missing blob is not an error.
	Delete(ctx context.Context, path string) error
	Stat(ctx context.Context, path string) (Info, error)
	// Walk visits every blob in the store.
	Walk(ctx context.Context, fn func(Info) error) error
	Ping(ctx context.Context) error
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendLocal:
		return NewLocalStore(cfg.Root)
	case BackendMinIO:
		return NewMinIOStore(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// StoredPath derives a fresh relative path for an upload of filename by owner.
// The random prefix keeps re-uploads of the same name from colliding.
func StoredPath(ownerID uint32, filename string) string {
	prefix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d/%s_%s", ownerID, prefix, SanitizeName(filename))
}

// SanitizeName strips directories and anything outside a conservative charset
// from a client-supplied filename.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	clean := strings.Trim(b.String(), ".")
	if clean == "" {
		return "file"
	}
	if len(clean) > 100 {
		ext := path.Ext(clean)
		if len(ext) > 16 {
			ext = ""
		}
		clean = clean[:100-len(ext)] + ext
	}
	return clean
}

// cleanPath rejects stored paths that could leave the store root.
func cleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", fmt.Errorf("invalid blob path %q", p)
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid blob path %q", p)
	}
	return cleaned, nil
}
