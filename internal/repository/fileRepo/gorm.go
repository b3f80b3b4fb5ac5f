package fileRepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud-storage/internal/apperr"
	"cloud-storage/internal/model/fileInfo"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRepository is the gorm-backed twin of FileRepository, used with the
// SQLite driver.
type GormRepository struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, file *fileInfo.File) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return gormError("create file", err)
	}
	return nil
}

func (r *GormRepository) GetByID(ctx context.Context, id uuid.UUID) (*fileInfo.File, error) {
	var file fileInfo.File
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&file).Error; err != nil {
		return nil, gormError("get file", err)
	}
	return &file, nil
}

func (r *GormRepository) GetByShortLink(ctx context.Context, token string) (*fileInfo.File, error) {
	var file fileInfo.File
	if err := r.db.WithContext(ctx).Where("short_link = ?", token).First(&file).Error; err != nil {
		return nil, gormError("get file by short link", err)
	}
	return &file, nil
}

func (r *GormRepository) List(ctx context.Context, filter fileInfo.Filter) ([]*fileInfo.File, int, error) {
	byOwner := func(db *gorm.DB) *gorm.DB {
		if filter.OwnerID != nil {
			return db.Where("owner_id = ?", *filter.OwnerID)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&fileInfo.File{}).Scopes(byOwner).Count(&total).Error; err != nil {
		return nil, 0, gormError("count files", err)
	}

	files := make([]*fileInfo.File, 0, filter.Limit)
	err := r.db.WithContext(ctx).Scopes(byOwner).
		Order("upload_date DESC").Order("id").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&files).Error
	if err != nil {
		return nil, 0, gormError("list files", err)
	}
	return files, int(total), nil
}

func (r *GormRepository) Update(ctx context.Context, id uuid.UUID, changes fileInfo.Changes) (*fileInfo.File, error) {
	updates := map[string]any{"last_update_date": changes.UpdatedAt}
	if changes.Comment != nil {
		updates["comment"] = *changes.Comment
	}
	if changes.Content != nil {
		updates["original_name"] = changes.Content.OriginalName
		updates["stored_path"] = changes.Content.StoredPath
		updates["size"] = changes.Content.Size
	}
	return r.updateReturning(ctx, "update file", id, updates)
}

func (r *GormRepository) SetShortLink(ctx context.Context, id uuid.UUID, token *string, at time.Time) (*fileInfo.File, error) {
	return r.updateReturning(ctx, "set short link", id, map[string]any{
		"short_link":       token,
		"last_update_date": at,
	})
}

func (r *GormRepository) updateReturning(ctx context.Context, op string, id uuid.UUID, updates map[string]any) (*fileInfo.File, error) {
	var file fileInfo.File
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&fileInfo.File{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&file).Error
	})
	if err != nil {
		return nil, gormError(op, err)
	}
	return &file, nil
}

func (r *GormRepository) TouchDownload(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&fileInfo.File{}).Where("id = ?", id).Update("last_download_date", at)
	if res.Error != nil {
		return gormError("touch download", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("touch download: %w", apperr.ErrNotFound)
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	var storedPath string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var file fileInfo.File
		if err := tx.Select("stored_path").Where("id = ?", id).First(&file).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&fileInfo.File{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		storedPath = file.StoredPath
		return nil
	})
	if err != nil {
		return "", gormError("delete file", err)
	}
	return storedPath, nil
}

func (r *GormRepository) StoredPathExists(ctx context.Context, storedPath string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&fileInfo.File{}).Where("stored_path = ?", storedPath).Count(&count).Error
	if err != nil {
		return false, gormError("check stored path", err)
	}
	return count > 0, nil
}

func gormError(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, apperr.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// isUniqueViolation also matches the raw SQLite message, which gorm's error
// translation does not recognise for the pure-Go driver.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
