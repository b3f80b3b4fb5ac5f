package fileService

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud-storage/internal/access"
	"cloud-storage/internal/apperr"
	"cloud-storage/internal/model/fileInfo"
	"cloud-storage/internal/model/user"
	"cloud-storage/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const issueAttempts = 3

// NewShortLinkToken returns 32 hex characters from a random (v4) UUID. The
// token carries nothing about the record it will point at.
func NewShortLinkToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IssueShortLink replaces the record's token with a fresh one. The previous
// token stops resolving as soon as this returns.
func (s *FileService) IssueShortLink(ctx context.Context, p user.Principal, id uuid.UUID) (file *fileInfo.File, err error) {
	defer func() { observe("short_link_issue", err) }()

	if _, err := s.visible(ctx, p, access.Write, id); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= issueAttempts; attempt++ {
		token := NewShortLinkToken()
		file, err = s.repo.SetShortLink(ctx, id, &token, s.clock())
		if errors.Is(err, apperr.ErrConflict) {
			logger.GetLogger(ctx).Warn("short link collision",
				zap.String("file_id", id.String()),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("issue short link: %w", err)
		}
		logger.GetLogger(ctx).Info("short link issued", zap.String("file_id", id.String()))
		return file, nil
	}
	return nil, fmt.Errorf("issue short link after %d attempts: %w", issueAttempts, apperr.ErrConflict)
}

func (s *FileService) ClearShortLink(ctx context.Context, p user.Principal, id uuid.UUID) (file *fileInfo.File, err error) {
	defer func() { observe("short_link_clear", err) }()

	if _, err := s.visible(ctx, p, access.Write, id); err != nil {
		return nil, err
	}
	file, err = s.repo.SetShortLink(ctx, id, nil, s.clock())
	if err != nil {
		return nil, fmt.Errorf("clear short link: %w", err)
	}
	logger.GetLogger(ctx).Info("short link cleared", zap.String("file_id", id.String()))
	return file, nil
}
