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
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const fileColumns = `id, owner_id, original_name, stored_path, size, upload_date,
	last_update_date, last_download_date, comment, short_link`

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type FileRepository struct {
	db DBTX
}

func New(db DBTX) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *fileInfo.File) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO files (id, owner_id, original_name, stored_path, size, upload_date,
			last_update_date, last_download_date, comment, short_link)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		file.ID, file.OwnerID, file.OriginalName, file.StoredPath, file.Size, file.UploadDate,
		file.LastUpdateDate, file.LastDownloadDate, file.Comment, file.ShortLink)
	if err != nil {
		return pgError("create file", err)
	}
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*fileInfo.File, error) {
	row := r.db.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id)
	return scanOne(row, "get file")
}

func (r *FileRepository) GetByShortLink(ctx context.Context, token string) (*fileInfo.File, error) {
	row := r.db.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE short_link = $1`, token)
	return scanOne(row, "get file by short link")
}

// List returns one page of files and the total number matching the filter.
func (r *FileRepository) List(ctx context.Context, filter fileInfo.Filter) ([]*fileInfo.File, int, error) {
	where := ""
	args := []any{}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		where = ` WHERE owner_id = $1`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM files`+where, args...).Scan(&total); err != nil {
		return nil, 0, pgError("count files", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM files%s ORDER BY upload_date DESC, id LIMIT $%d OFFSET $%d`,
		fileColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, pgError("list files", err)
	}
	defer rows.Close()

	files := make([]*fileInfo.File, 0, filter.Limit)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, 0, pgError("scan file", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, pgError("list files", err)
	}
	return files, total, nil
}

// Update applies changes in a single statement. A row deleted concurrently
// yields apperr.ErrNotFound.
func (r *FileRepository) Update(ctx context.Context, id uuid.UUID, changes fileInfo.Changes) (*fileInfo.File, error) {
	args := []any{id, changes.UpdatedAt}
	sets := []string{"last_update_date = $2"}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if changes.Comment != nil {
		set("comment", *changes.Comment)
	}
	if changes.Content != nil {
		set("original_name", changes.Content.OriginalName)
		set("stored_path", changes.Content.StoredPath)
		set("size", changes.Content.Size)
	}

	query := fmt.Sprintf(`UPDATE files SET %s WHERE id = $1 RETURNING %s`, strings.Join(sets, ", "), fileColumns)
	return scanOne(r.db.QueryRow(ctx, query, args...), "update file")
}

// SetShortLink stores token, or clears it when token is nil. A token already
// held by another file yields apperr.ErrConflict.
func (r *FileRepository) SetShortLink(ctx context.Context, id uuid.UUID, token *string, at time.Time) (*fileInfo.File, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE files SET short_link = $2, last_update_date = $3 WHERE id = $1 RETURNING `+fileColumns,
		id, token, at)
	return scanOne(row, "set short link")
}

func (r *FileRepository) TouchDownload(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE files SET last_download_date = $2 WHERE id = $1`, id, at)
	if err != nil {
		return pgError("touch download", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("touch download: %w", apperr.ErrNotFound)
	}
	return nil
}

// Delete removes the record and returns the stored path it pointed at when
// it was removed.
func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	var storedPath string
	err := r.db.QueryRow(ctx, `DELETE FROM files WHERE id = $1 RETURNING stored_path`, id).Scan(&storedPath)
	if err != nil {
		return "", pgError("delete file", err)
	}
	return storedPath, nil
}

func (r *FileRepository) StoredPathExists(ctx context.Context, storedPath string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM files WHERE stored_path = $1)",
		storedPath).Scan(&exists)
	if err != nil {
		return false, pgError("check stored path", err)
	}
	return exists, nil
}

func scanFile(row pgx.Row) (*fileInfo.File, error) {
	var file fileInfo.File
	err := row.Scan(
		&file.ID, &file.OwnerID, &file.OriginalName, &file.StoredPath, &file.Size, &file.UploadDate,
		&file.LastUpdateDate, &file.LastDownloadDate, &file.Comment, &file.ShortLink,
	)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func scanOne(row pgx.Row, op string) (*fileInfo.File, error) {
	file, err := scanFile(row)
	if err != nil {
		return nil, pgError(op, err)
	}
	return file, nil
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
