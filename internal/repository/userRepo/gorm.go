package userRepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud-storage/internal/apperr"
	"cloud-storage/internal/model/user"

	"gorm.io/gorm"
)

type GormUserRepo struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *GormUserRepo {
	return &GormUserRepo{db: db}
}

func (r *GormUserRepo) Create(ctx context.Context, u *user.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return gormError("insert user", err)
	}
	return nil
}

func (r *GormUserRepo) GetByID(ctx context.Context, id uint32) (*user.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *GormUserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *GormUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *GormUserRepo) getBy(ctx context.Context, column string, value any) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&u).Error; err != nil {
		return nil, gormError("get user by "+column, err)
	}
	return &u, nil
}

func (r *GormUserRepo) SetFlags(ctx context.Context, id uint32, isStaff, isSuperuser bool) error {
	res := r.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", id).
		Updates(map[string]any{"is_staff": isStaff, "is_superuser": isSuperuser})
	if res.Error != nil {
		return gormError("set user flags", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set user flags: %w", apperr.ErrNotFound)
	}
	return nil
}

func gormError(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", op, apperr.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
