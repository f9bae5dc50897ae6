package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/RigelNana/docvault/models"
	"github.com/RigelNana/docvault/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var checksumPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// LedgerService 文档版本账本:版本号单调、内容寻址去重的唯一裁决方。
// 去重只比较 checksum,不比较 size,沿用来源系统的行为
// (SHA-256 碰撞视为可接受的完整性假设)。
type LedgerService interface {
	ReserveVersion(ctx context.Context, documentID, uploaderID uuid.UUID, originalFilename, mimeType string, declaredSize int64) (*models.DocumentVersion, error)
	CommitVersion(ctx context.Context, versionID uuid.UUID, filename, mimeType string, size int64, storagePath, checksum string) (*models.DocumentVersion, bool, error)
	ListVersions(ctx context.Context, documentID uuid.UUID) ([]*models.DocumentVersion, error)
	LatestVersion(ctx context.Context, documentID uuid.UUID) (*models.DocumentVersion, error)
	FindByChecksum(ctx context.Context, checksum string) (*models.DocumentVersion, error)
	CleanupStaleReservations(ctx context.Context, olderThan time.Duration) (int64, error)
}

type LedgerServiceImpl struct {
	versions  repository.VersionRepository
	documents repository.DocumentRepository
}

func NewLedgerService(versions repository.VersionRepository, documents repository.DocumentRepository) LedgerService {
	return &LedgerServiceImpl{
		versions:  versions,
		documents: documents,
	}
}

// ReserveVersion 预留下一个版本槽位:号码 = 已提交版本数 + 1。
// 并发预留可能拿到同一个号码,冲突推迟到 commit 时由唯一索引暴露。
func (s *LedgerServiceImpl) ReserveVersion(ctx context.Context, documentID, uploaderID uuid.UUID, originalFilename, mimeType string, declaredSize int64) (*models.DocumentVersion, error) {
	if declaredSize < 0 {
		return nil, ErrInvalidSize
	}
	if _, err := s.readableDocument(ctx, documentID); err != nil {
		return nil, err
	}

	count, err := s.versions.CountCommitted(ctx, documentID)
	if err != nil {
		return nil, storeErr("count versions", err)
	}

	version := &models.DocumentVersion{
		DocumentID:       documentID,
		VersionNumber:    int(count) + 1,
		Status:           models.VersionStatusPending,
		Filename:         originalFilename,
		OriginalFilename: originalFilename,
		MimeType:         mimeType,
		SizeBytes:        declaredSize,
		UploaderID:       uploaderID,
	}
	if err := s.versions.Create(ctx, version); err != nil {
		return nil, storeErr("reserve version", err)
	}
	return version, nil
}

// CommitVersion 提交预留槽位,返回 (版本, 是否去重命中)。
// 重复 commit 同一个 versionID 幂等返回已有记录。
func (s *LedgerServiceImpl) CommitVersion(ctx context.Context, versionID uuid.UUID, filename, mimeType string, size int64, storagePath, checksum string) (*models.DocumentVersion, bool, error) {
	checksum = strings.ToLower(checksum)
	if !checksumPattern.MatchString(checksum) {
		return nil, false, ErrInvalidChecksum
	}
	if size < 0 {
		return nil, false, ErrInvalidSize
	}

	version, err := s.versions.CommitPending(ctx, versionID, repository.CommitParams{
		Filename:    filename,
		MimeType:    mimeType,
		SizeBytes:   size,
		StoragePath: storagePath,
		Checksum:    checksum,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrVersionNotFound
		}
		if isDuplicateKey(err) {
			return nil, false, ErrVersionConflict
		}
		return nil, false, storeErr("commit version", err)
	}
	return version, version.ContentRef != "", nil
}

func (s *LedgerServiceImpl) ListVersions(ctx context.Context, documentID uuid.UUID) ([]*models.DocumentVersion, error) {
	if _, err := s.readableDocument(ctx, documentID); err != nil {
		return nil, err
	}
	versions, err := s.versions.GetCommittedByDocument(ctx, documentID)
	if err != nil {
		return nil, storeErr("list versions", err)
	}
	return versions, nil
}

func (s *LedgerServiceImpl) LatestVersion(ctx context.Context, documentID uuid.UUID) (*models.DocumentVersion, error) {
	if _, err := s.readableDocument(ctx, documentID); err != nil {
		return nil, err
	}
	version, err := s.versions.GetLatestCommitted(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoVersionsYet
		}
		return nil, storeErr("load latest version", err)
	}
	return version, nil
}

func (s *LedgerServiceImpl) FindByChecksum(ctx context.Context, checksum string) (*models.DocumentVersion, error) {
	checksum = strings.ToLower(checksum)
	if !checksumPattern.MatchString(checksum) {
		return nil, ErrInvalidChecksum
	}
	version, err := s.versions.GetCommittedByChecksum(ctx, checksum)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, storeErr("find by checksum", err)
	}
	return version, nil
}

func (s *LedgerServiceImpl) CleanupStaleReservations(ctx context.Context, olderThan time.Duration) (int64, error) {
	count, err := s.versions.DeleteStalePending(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, storeErr("cleanup stale reservations", err)
	}
	return count, nil
}

// readableDocument: DELETED 为终态,其版本对外不可读
func (s *LedgerServiceImpl) readableDocument(ctx context.Context, documentID uuid.UUID) (*models.Document, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, storeErr("load document", err)
	}
	if doc.Status == models.DocumentStatusDeleted {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
