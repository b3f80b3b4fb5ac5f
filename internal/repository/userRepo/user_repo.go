package userRepo

import (
	"context"
	"errors"
	"fmt"

	"cloud-storage/internal/apperr"
	"cloud-storage/internal/model/user"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, username, email, password_hash, is_staff, is_superuser, created_at`

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepo struct {
	conn DBTX
}

func New(conn DBTX) *UserRepo {
	return &UserRepo{conn: conn}
}

// Create inserts u and fills in its ID and CreatedAt.
func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	query := `INSERT INTO users (username, email, password_hash, is_staff, is_superuser)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.conn.QueryRow(ctx, query, u.Username, u.Email, u.Password, u.IsStaff, u.IsSuperuser).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return pgError("insert user", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uint32) (*user.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepo) getBy(ctx context.Context, column string, value any) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, userColumns, column)
	var u user.User
	err := r.conn.QueryRow(ctx, query, value).
		Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.IsStaff, &u.IsSuperuser, &u.CreatedAt)
	if err != nil {
		return nil, pgError("get user by "+column, err)
	}
	return &u, nil
}

func (r *UserRepo) SetFlags(ctx context.Context, id uint32, isStaff, isSuperuser bool) error {
	tag, err := r.conn.Exec(ctx, `UPDATE users SET is_staff = $2, is_superuser = $3 WHERE id = $1`,
		id, isStaff, isSuperuser)
	if err != nil {
		return pgError("set user flags", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set user flags: %w", apperr.ErrNotFound)
	}
	return nil
}

func pgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, apperr.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
