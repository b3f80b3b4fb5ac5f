// Package fileService keeps file records and their blobs consistent across
// create, update, delete, short-link and download operations.
package fileService

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud-storage/internal/access"
	"cloud-storage/internal/apperr"
	"cloud-storage/internal/blobstore"
	"cloud-storage/internal/model/fileInfo"
	"cloud-storage/internal/model/user"
	"cloud-storage/pkg/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var fileOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cs_file_operations_total",
	Help: "File operations by kind and outcome.",
}, []string{"operation", "result"})

type Repository interface {
	Create(ctx context.Context, file *fileInfo.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*fileInfo.File, error)
	GetByShortLink(ctx context.Context, token string) (*fileInfo.File, error)
	List(ctx context.Context, filter fileInfo.Filter) ([]*fileInfo.File, int, error)
	Update(ctx context.Context, id uuid.UUID, changes fileInfo.Changes) (*fileInfo.File, error)
	SetShortLink(ctx context.Context, id uuid.UUID, token *string, at time.Time) (*fileInfo.File, error)
	TouchDownload(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) (string, error)
}

// Upload is client-supplied file content. Size is -1 when the client did not
// announce it.
type Upload struct {
	Name string
	Size int64
	Body io.Reader
}

// UpdateInput carries the mutable fields of a record. Nil means unchanged.
type UpdateInput struct {
	Comment *string
	Upload  *Upload
}

type ListResult struct {
	Files  []*fileInfo.File
	Total  int
	Limit  int
	Offset int
}

type Option func(*FileService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *FileService) { s.now = now }
}

type FileService struct {
	repo   Repository
	store  blobstore.Store
	policy access.Policy
	now    func() time.Time
}

func New(repo Repository, store blobstore.Store, policy access.Policy, opts ...Option) *FileService {
	s := &FileService{
		repo:   repo,
		store:  store,
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FileService) clock() time.Time {
	return s.now().UTC()
}

// Create writes the blob first and the record second. A record that cannot
// be written takes its blob with it.
func (s *FileService) Create(ctx context.Context, p user.Principal, upload *Upload, comment string) (file *fileInfo.File, err error) {
	defer func() { observe("create", err) }()
	log := logger.GetLogger(ctx)

	if err := validateUpload(upload); err != nil {
		return nil, err
	}

	content, err := s.writeBlob(ctx, p.ID, upload)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	file = &fileInfo.File{
		ID:             uuid.New(),
		OwnerID:        p.ID,
		OriginalName:   content.OriginalName,
		StoredPath:     content.StoredPath,
		Size:           content.Size,
		UploadDate:     now,
		LastUpdateDate: now,
		Comment:        comment,
	}
	if err := s.repo.Create(ctx, file); err != nil {
		s.discardBlob(ctx, content.StoredPath, "create failed")
		return nil, fmt.Errorf("create file record: %w", err)
	}

	log.Info("file created",
		zap.String("file_id", file.ID.String()),
		zap.Uint32("owner_id", file.OwnerID),
		zap.Int64("size", file.Size),
	)
	return file, nil
}

func (s *FileService) Get(ctx context.Context, p user.Principal, id uuid.UUID) (*fileInfo.File, error) {
	return s.visible(ctx, p, access.Read, id)
}

func (s *FileService) List(ctx context.Context, p user.Principal, limit, offset int) (*ListResult, error) {
	return s.list(ctx, s.policy.Scope(p, access.Read), limit, offset)
}

// ListByOwner is the staff-only listing of one owner's files.
func (s *FileService) ListByOwner(ctx context.Context, p user.Principal, ownerID uint32, limit, offset int) (*ListResult, error) {
	scope, err := s.policy.ByOwner(p, ownerID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, scope, limit, offset)
}

func (s *FileService) list(ctx context.Context, owner *uint32, limit, offset int) (*ListResult, error) {
	limit, offset = NormalizePage(limit, offset)
	files, total, err := s.repo.List(ctx, fileInfo.Filter{OwnerID: owner, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return &ListResult{Files: files, Total: total, Limit: limit, Offset: offset}, nil
}

// Update applies in to a record. A full update (partial == false) requires
// new content. The owner is never changed.
func (s *FileService) Update(ctx context.Context, p user.Principal, id uuid.UUID, in UpdateInput, partial bool) (file *fileInfo.File, err error) {
	defer func() { observe("update", err) }()

	current, err := s.visible(ctx, p, access.Write, id)
	if err != nil {
		return nil, err
	}

	if !partial && in.Upload == nil {
		return nil, apperr.NewValidationError("file", "No file was submitted.")
	}
	if in.Upload != nil {
		if err := validateUpload(in.Upload); err != nil {
			return nil, err
		}
	}

	changes := fileInfo.Changes{Comment: in.Comment, UpdatedAt: s.clock()}
	if in.Upload != nil {
		content, err := s.writeBlob(ctx, current.OwnerID, in.Upload)
		if err != nil {
			return nil, err
		}
		changes.Content = content
	}

	updated, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		if changes.Content != nil {
			s.discardBlob(ctx, changes.Content.StoredPath, "update failed")
		}
		return nil, fmt.Errorf("update file record: %w", err)
	}

	if changes.Content != nil && current.StoredPath != updated.StoredPath {
		s.discardBlob(ctx, current.StoredPath, "content replaced")
	}

	logger.GetLogger(ctx).Info("file updated",
		zap.String("file_id", id.String()),
		zap.Bool("content_replaced", changes.Content != nil),
	)
	return updated, nil
}

// Delete removes the blob and then the record. A blob that is already gone
// does not stop the record from being deleted.
func (s *FileService) Delete(ctx context.Context, p user.Principal, id uuid.UUID) (err error) {
	defer func() { observe("delete", err) }()
	log := logger.GetLogger(ctx).With(zap.String("file_id", id.String()))

	current, err := s.visible(ctx, p, access.Write, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, current.StoredPath); err != nil {
		return storageError("delete blob", current.StoredPath, err)
	}

	storedPath, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	// a concurrent update may have swapped the blob between our read and delete
	if storedPath != current.StoredPath {
		s.discardBlob(ctx, storedPath, "record deleted")
	}

	log.Info("file deleted", zap.String("stored_path", storedPath))
	return nil
}

// visible loads a record and hides it behind ErrNotFound when the principal
// may not see it for op.
func (s *FileService) visible(ctx context.Context, p user.Principal, op access.Operation, id uuid.UUID) (*fileInfo.File, error) {
	file, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.Visible(p, op, file) {
		return nil, fmt.Errorf("file %s: %w", id, apperr.ErrNotFound)
	}
	return file, nil
}

func (s *FileService) writeBlob(ctx context.Context, ownerID uint32, upload *Upload) (*fileInfo.Content, error) {
	storedPath := blobstore.StoredPath(ownerID, upload.Name)
	info, err := s.store.Put(ctx, storedPath, upload.Body, upload.Size)
	if err != nil {
		return nil, storageError("write blob", storedPath, err)
	}
	if info.Size == 0 {
		s.discardBlob(ctx, storedPath, "empty upload")
		return nil, apperr.NewValidationError("file", "The submitted file is empty.")
	}
	return &fileInfo.Content{
		OriginalName: DisplayName(upload.Name),
		StoredPath:   storedPath,
		Size:         info.Size,
	}, nil
}

// discardBlob removes a blob no record points at. Failure leaves an orphan
// for the sweeper.
func (s *FileService) discardBlob(ctx context.Context, storedPath, reason string) {
	if err := s.store.Delete(ctx, storedPath); err != nil {
		logger.GetLogger(ctx).Warn("orphan blob left behind",
			zap.String("stored_path", storedPath),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

func validateUpload(upload *Upload) error {
	if upload == nil || upload.Body == nil {
		return apperr.NewValidationError("file", "No file was submitted.")
	}
	if upload.Size == 0 {
		return apperr.NewValidationError("file", "The submitted file is empty.")
	}
	if DisplayName(upload.Name) == "" {
		return apperr.NewValidationError("file", "No filename could be determined.")
	}
	return nil
}

// DisplayName is the last path element of a client-supplied filename.
func DisplayName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}

// NormalizePage applies the default and maximum page size.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func storageError(op, storedPath string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, storedPath, apperr.ErrStorageUnavailable, err)
}

func observe(operation string, err error) {
	fileOperationsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperr.IsValidation(err):
		return "invalid"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case errors.Is(err, apperr.ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "error"
	}
}
