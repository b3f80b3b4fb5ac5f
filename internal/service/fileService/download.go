package fileService

import (
	"context"
	"errors"
	"fmt"
	"io"

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

var shortLinkResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cs_short_link_resolutions_total",
	Help: "Short link download attempts by outcome.",
}, []string{"result"})

// Download is an open blob ready to be streamed. The caller must Close Body.
type Download struct {
	File *fileInfo.File
	Body io.ReadCloser
	Size int64
}

// downloadRequest travels through the download stages; each stage fills in
// what the next one needs.
type downloadRequest struct {
	route     access.Route
	principal *user.Principal
	id        uuid.UUID
	token     string

	file   *fileInfo.File
	result *Download
}

type downloadStage func(ctx context.Context, req *downloadRequest) error

func (s *FileService) downloadStages() []downloadStage {
	return []downloadStage{
		s.resolve,
		s.checkPermission,
		s.touch,
		s.stream,
	}
}

// DownloadByID serves a record's bytes to a principal with download rights
// on it. Records the principal may not download are reported as missing.
func (s *FileService) DownloadByID(ctx context.Context, p *user.Principal, id uuid.UUID) (d *Download, err error) {
	defer func() { observe("download", err) }()
	return s.download(ctx, &downloadRequest{route: access.ByID, principal: p, id: id})
}

// DownloadByShortLink serves the bytes of whichever record holds token. No
// principal is involved.
func (s *FileService) DownloadByShortLink(ctx context.Context, token string) (d *Download, err error) {
	defer func() {
		observe("download", err)
		shortLinkResolutionsTotal.WithLabelValues(resultLabel(err)).Inc()
	}()
	return s.download(ctx, &downloadRequest{route: access.ByShortLink, token: token})
}

func (s *FileService) download(ctx context.Context, req *downloadRequest) (*Download, error) {
	for _, stage := range s.downloadStages() {
		if err := stage(ctx, req); err != nil {
			return nil, err
		}
	}
	return req.result, nil
}

func (s *FileService) resolve(ctx context.Context, req *downloadRequest) error {
	var (
		file *fileInfo.File
		err  error
	)
	switch req.route {
	case access.ByShortLink:
		if req.token == "" {
			return fmt.Errorf("empty short link: %w", apperr.ErrNotFound)
		}
		file, err = s.repo.GetByShortLink(ctx, req.token)
	default:
		file, err = s.repo.GetByID(ctx, req.id)
	}
	if err != nil {
		return err
	}
	req.file = file
	return nil
}

func (s *FileService) checkPermission(_ context.Context, req *downloadRequest) error {
	if !s.policy.CanDownload(req.principal, req.route, req.file) {
		return fmt.Errorf("file %s: %w", req.file.ID, apperr.ErrNotFound)
	}
	return nil
}

// touch records the attempt. It is not undone if streaming fails later.
func (s *FileService) touch(ctx context.Context, req *downloadRequest) error {
	at := s.clock()
	if err := s.repo.TouchDownload(ctx, req.file.ID, at); err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	req.file.LastDownloadDate = &at
	return nil
}

func (s *FileService) stream(ctx context.Context, req *downloadRequest) error {
	body, info, err := s.store.Open(ctx, req.file.StoredPath)
	if errors.Is(err, blobstore.ErrNotExist) {
		logger.GetLogger(ctx).Error("blob missing for file record",
			zap.String("file_id", req.file.ID.String()),
			zap.String("stored_path", req.file.StoredPath),
		)
		return fmt.Errorf("file %s has no content: %w", req.file.ID, apperr.ErrConflict)
	}
	if err != nil {
		return storageError("open blob", req.file.StoredPath, err)
	}
	req.result = &Download{File: req.file, Body: body, Size: info.Size}
	return nil
}
