package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/storage"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

const maxBackupSize = 256 << 20

// BackupStorageService hands out presigned URLs for backup archives. The
// archives are produced and consumed by clients; the server never reads them.
type BackupStorageService struct {
	storage storage.Presigner
	now     func() time.Time
}

func NewBackupStorageService(presigner storage.Presigner) *BackupStorageService {
	return &BackupStorageService{storage: presigner, now: time.Now}
}

func (s *BackupStorageService) Enabled() bool {
	return s != nil && s.storage != nil
}

func (s *BackupStorageService) PresignUpload(ctx context.Context, userID uuid.UUID, fileName string, size int64) (string, storage.PresignedRequest, error) {
	if !s.Enabled() {
		return "", storage.PresignedRequest{}, fmt.Errorf("%w: backup storage is not configured", pumpkin_errors.ErrServiceUnavailable)
	}
	if size < 0 || size > maxBackupSize {
		return "", storage.PresignedRequest{}, fmt.Errorf("%w: backup size out of range", pumpkin_errors.ErrInvalidInput)
	}
	key := backupObjectKey(userID, fileName, s.now())
	req, err := s.storage.PresignPut(ctx, key, size)
	if err != nil {
		return "", storage.PresignedRequest{}, err
	}
	return key, req, nil
}

// PresignDownload only signs keys under the caller's own prefix.
func (s *BackupStorageService) PresignDownload(ctx context.Context, userID uuid.UUID, key string) (storage.PresignedRequest, error) {
	if !s.Enabled() {
		return storage.PresignedRequest{}, fmt.Errorf("%w: backup storage is not configured", pumpkin_errors.ErrServiceUnavailable)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return storage.PresignedRequest{}, fmt.Errorf("%w: key is required", pumpkin_errors.ErrInvalidInput)
	}
	if !strings.HasPrefix(path.Clean(key), backupPrefix(userID)) {
		return storage.PresignedRequest{}, pumpkin_errors.ErrForbidden
	}
	return s.storage.PresignGet(ctx, key)
}

func backupPrefix(userID uuid.UUID) string {
	return "backups/" + userID.String() + "/"
}

func backupObjectKey(userID uuid.UUID, fileName string, now time.Time) string {
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(fileName, "\\", "/")), path.Ext(fileName))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	if base == "" || base == "." || base == "-" {
		base = "backup"
	}
	return fmt.Sprintf("%s%s-%s.json", backupPrefix(userID), now.UTC().Format("20060102T150405Z"), base)
}
