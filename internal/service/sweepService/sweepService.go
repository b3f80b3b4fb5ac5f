// Package sweepService removes blobs that no file record references. They
// are left behind when a blob write succeeds but the record write, or the
// cleanup after it, does not.
package sweepService

import (
	"context"
	"fmt"
	"time"

	"cloud-storage/internal/blobstore"
	"cloud-storage/pkg/logger"

	"go.uber.org/zap"
)

type Repository interface {
	StoredPathExists(ctx context.Context, storedPath string) (bool, error)
}

type Report struct {
	Scanned  int
	Orphaned int
	Deleted  int
	Failed   int
	Bytes    int64
}

type SweepService struct {
	repo  Repository
	store blobstore.Store
	now   func() time.Time
}

func New(repo Repository, store blobstore.Store) *SweepService {
	return &SweepService{repo: repo, store: store, now: time.Now}
}

// Sweep deletes unreferenced blobs last modified more than grace ago. The
// grace period keeps in-flight uploads, whose record is not written yet, safe.
// With dryRun set nothing is deleted.
func (s *SweepService) Sweep(ctx context.Context, grace time.Duration, dryRun bool) (*Report, error) {
	log := logger.GetLogger(ctx)
	cutoff := s.now().Add(-grace)
	report := &Report{}

	err := s.store.Walk(ctx, func(info blobstore.Info) error {
		report.Scanned++
		if info.ModTime.After(cutoff) {
			return nil
		}

		referenced, err := s.repo.StoredPathExists(ctx, info.Path)
		if err != nil {
			return fmt.Errorf("check %s: %w", info.Path, err)
		}
		if referenced {
			return nil
		}

		report.Orphaned++
		if dryRun {
			log.Info("orphan blob", zap.String("stored_path", info.Path), zap.Int64("size", info.Size))
			return nil
		}
		if err := s.store.Delete(ctx, info.Path); err != nil {
			report.Failed++
			log.Warn("failed to delete orphan blob", zap.String("stored_path", info.Path), zap.Error(err))
			return nil
		}
		report.Deleted++
		report.Bytes += info.Size
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("sweep: %w", err)
	}

	log.Info("sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("orphaned", report.Orphaned),
		zap.Int("deleted", report.Deleted),
		zap.Int("failed", report.Failed),
		zap.Int64("bytes", report.Bytes),
	)
	return report, nil
}
