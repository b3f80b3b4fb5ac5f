package fileRepo_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cloud-storage/internal/apperr"
	"cloud-storage/internal/model/fileInfo"
	"cloud-storage/internal/model/user"
	"cloud-storage/internal/repository/fileRepo"
	"cloud-storage/pkg/database/sqlite"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repository interface {
	Create(ctx context.Context, file *fileInfo.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*fileInfo.File, error)
	GetByShortLink(ctx context.Context, token string) (*fileInfo.File, error)
	List(ctx context.Context, filter fileInfo.Filter) ([]*fileInfo.File, int, error)
	Update(ctx context.Context, id uuid.UUID, changes fileInfo.Changes) (*fileInfo.File, error)
	SetShortLink(ctx context.Context, id uuid.UUID, token *string, at time.Time) (*fileInfo.File, error)
	TouchDownload(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) (string, error)
	StoredPathExists(ctx context.Context, storedPath string) (bool, error)
}

var (
	_ repository = (*fileRepo.FileRepository)(nil)
	_ repository = (*fileRepo.GormRepository)(nil)
)

func TestGormRepository(t *testing.T) {
	dsn := fmt.Sprintf("file:filerepo_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(sqlite.Config{DSN: dsn}, &user.User{}, &fileInfo.File{})
	require.NoError(t, err)

	runRepositoryTests(t, fileRepo.NewGorm(db), 1, 2)
}

func newFile(owner uint32, name string, uploaded time.Time) *fileInfo.File {
	return &fileInfo.File{
		ID:             uuid.New(),
		OwnerID:        owner,
		OriginalName:   name,
		StoredPath:     fmt.Sprintf("%d/%s", owner, name),
		Size:           10,
		UploadDate:     uploaded,
		LastUpdateDate: uploaded,
		Comment:        "",
	}
}

// runRepositoryTests exercises the behaviour both implementations must share.
// ownerA and ownerB must reference existing users.
func runRepositoryTests(t *testing.T, repo repository, ownerA, ownerB uint32) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	a1 := newFile(ownerA, "a1.txt", base)
	a2 := newFile(ownerA, "a2.txt", base.Add(time.Minute))
	b1 := newFile(ownerB, "b1.txt", base.Add(2*time.Minute))
	for _, f := range []*fileInfo.File{a1, a2, b1} {
		require.NoError(t, repo.Create(ctx, f))
	}

	t.Run("GetByID", func(t *testing.T) {
		got, err := repo.GetByID(ctx, a1.ID)
		require.NoError(t, err)
		assert.Equal(t, a1.OriginalName, got.OriginalName)
		assert.Equal(t, ownerA, got.OwnerID)
		assert.Nil(t, got.ShortLink)
		assert.Nil(t, got.LastDownloadDate)

		_, err = repo.GetByID(ctx, uuid.New())
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("List", func(t *testing.T) {
		all, total, err := repo.List(ctx, fileInfo.Filter{Limit: 20})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, all, 3)
		assert.Equal(t, b1.ID, all[0].ID)

		own, total, err := repo.List(ctx, fileInfo.Filter{OwnerID: fileInfo.OwnedBy(ownerA), Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, own, 1)
		assert.Equal(t, a1.ID, own[0].ID)
	})

	t.Run("Update", func(t *testing.T) {
		comment := "quarterly"
		at := base.Add(time.Hour)
		got, err := repo.Update(ctx, a1.ID, fileInfo.Changes{
			Comment:   &comment,
			Content:   &fileInfo.Content{OriginalName: "a1-v2.txt", StoredPath: "1/new_a1.txt", Size: 99},
			UpdatedAt: at,
		})
		require.NoError(t, err)
		assert.Equal(t, "quarterly", got.Comment)
		assert.Equal(t, "a1-v2.txt", got.OriginalName)
		assert.Equal(t, "1/new_a1.txt", got.StoredPath)
		assert.Equal(t, int64(99), got.Size)
		assert.Equal(t, ownerA, got.OwnerID)
		assert.True(t, got.LastUpdateDate.Equal(at))
		assert.True(t, got.UploadDate.Equal(base))

		_, err = repo.Update(ctx, uuid.New(), fileInfo.Changes{UpdatedAt: at})
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("ShortLink", func(t *testing.T) {
		token := "0123456789abcdef0123456789abcdef"
		got, err := repo.SetShortLink(ctx, a2.ID, &token, base)
		require.NoError(t, err)
		require.NotNil(t, got.ShortLink)
		assert.Equal(t, token, *got.ShortLink)

		found, err := repo.GetByShortLink(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, a2.ID, found.ID)

		_, err = repo.SetShortLink(ctx, b1.ID, &token, base)
		assert.True(t, errors.Is(err, apperr.ErrConflict))

		cleared, err := repo.SetShortLink(ctx, a2.ID, nil, base)
		require.NoError(t, err)
		assert.Nil(t, cleared.ShortLink)

		_, err = repo.GetByShortLink(ctx, token)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("TouchDownload", func(t *testing.T) {
		at := base.Add(2 * time.Hour)
		require.NoError(t, repo.TouchDownload(ctx, b1.ID, at))

		got, err := repo.GetByID(ctx, b1.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastDownloadDate)
		assert.True(t, got.LastDownloadDate.Equal(at))

		assert.True(t, errors.Is(repo.TouchDownload(ctx, uuid.New(), at), apperr.ErrNotFound))
	})

	t.Run("Delete", func(t *testing.T) {
		exists, err := repo.StoredPathExists(ctx, b1.StoredPath)
		require.NoError(t, err)
		assert.True(t, exists)

		path, err := repo.Delete(ctx, b1.ID)
		require.NoError(t, err)
		assert.Equal(t, b1.StoredPath, path)

		exists, err = repo.StoredPathExists(ctx, b1.StoredPath)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = repo.Delete(ctx, b1.ID)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})
}
