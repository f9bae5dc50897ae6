package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RigelNana/docvault/events"
	"github.com/RigelNana/docvault/models"
	"github.com/RigelNana/docvault/pkg/metrics"
	"github.com/RigelNana/docvault/repository"
	"github.com/RigelNana/docvault/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const stagingURLExpiry = 15 * time.Minute

type InitiateResult struct {
	DocumentID    uuid.UUID `json:"document_id"`
	VersionID     uuid.UUID `json:"version_id"`
	VersionNumber int       `json:"version_number"`
	StagingPath   string    `json:"staging_path"`
	UploadURL     string    `json:"upload_url,omitempty"`
}

type ConfirmResult struct {
	DocumentID    uuid.UUID `json:"document_id"`
	VersionID     uuid.UUID `json:"version_id"`
	VersionNumber int       `json:"version_number"`
	Deduplicated  bool      `json:"deduplicated"`
}

// UploadService 两阶段上传的编排层:initiate 预留槽位并给出暂存目标,
// 字节由调用方直接写给 blob store,confirm 校验并提交。
type UploadService interface {
	Initiate(ctx context.Context, documentID *uuid.UUID, filename, mimeType string, declaredSize int64, uploaderID uuid.UUID) (*InitiateResult, error)
	Confirm(ctx context.Context, versionID uuid.UUID, actualSize int64, checksum, storagePath string, userID uuid.UUID) (*ConfirmResult, error)
}

type UploadServiceImpl struct {
	ledger      LedgerService
	catalog     CatalogService
	permissions PermissionService
	versions    repository.VersionRepository
	blobs       storage.BlobStore
	publisher   *events.Publisher
}

func NewUploadService(ledger LedgerService, catalog CatalogService, permissions PermissionService, versions repository.VersionRepository, blobs storage.BlobStore, publisher *events.Publisher) UploadService {
	return &UploadServiceImpl{
		ledger:      ledger,
		catalog:     catalog,
		permissions: permissions,
		versions:    versions,
		blobs:       blobs,
		publisher:   publisher,
	}
}

// Initiate documentID 为空时隐式创建 DRAFT 文档,否则要求 WRITE 权限
func (s *UploadServiceImpl) Initiate(ctx context.Context, documentID *uuid.UUID, filename, mimeType string, declaredSize int64, uploaderID uuid.UUID) (*InitiateResult, error) {
	if declaredSize < 0 {
		return nil, ErrInvalidSize
	}

	var docID uuid.UUID
	if documentID == nil {
		doc, err := s.catalog.Create(ctx, uploaderID)
		if err != nil {
			return nil, err
		}
		docID = doc.ID
	} else {
		if _, err := s.catalog.Get(ctx, *documentID); err != nil {
			return nil, err
		}
		allowed, err := s.permissions.Check(ctx, *documentID, uploaderID, models.CapabilityWrite)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrForbidden
		}
		docID = *documentID
	}

	version, err := s.ledger.ReserveVersion(ctx, docID, uploaderID, filename, mimeType, declaredSize)
	if err != nil {
		return nil, err
	}

	stagingPath := fmt.Sprintf("staging/%s/%s", docID, version.ID)
	result := &InitiateResult{
		DocumentID:    docID,
		VersionID:     version.ID,
		VersionNumber: version.VersionNumber,
		StagingPath:   stagingPath,
	}

	if s.blobs != nil {
		uploadURL, err := s.blobs.PresignedPut(ctx, stagingPath, stagingURLExpiry)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		result.UploadURL = uploadURL
	}
	return result, nil
}

// Confirm 实际大小必须等于预留时声明的大小。去重命中时
// Deduplicated=true,暂存字节由调用方负责丢弃;元数据行
// 无论如何都记录本次的 storagePath,路径按版本记,不按 blob 记。
func (s *UploadServiceImpl) Confirm(ctx context.Context, versionID uuid.UUID, actualSize int64, checksum, storagePath string, userID uuid.UUID) (*ConfirmResult, error) {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, storeErr("load version", err)
	}

	if version.UploaderID != userID {
		allowed, err := s.permissions.Check(ctx, version.DocumentID, userID, models.CapabilityWrite)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrForbidden
		}
	}

	if version.Status == models.VersionStatusPending && actualSize != version.SizeBytes {
		metrics.Uploads.WithLabelValues("size_mismatch").Inc()
		return nil, ErrSizeMismatch
	}

	committed, deduplicated, err := s.ledger.CommitVersion(ctx, versionID, version.Filename, version.MimeType, actualSize, storagePath, checksum)
	if err != nil {
		metrics.Uploads.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.Uploads.WithLabelValues("committed").Inc()
	if deduplicated {
		metrics.DedupHits.Inc()
	}

	s.publisher.Publish(ctx, events.Event{
		Type:          events.TypeVersionCommitted,
		DocumentID:    committed.DocumentID.String(),
		VersionID:     committed.ID.String(),
		VersionNumber: committed.VersionNumber,
		Checksum:      committed.Checksum,
		Deduplicated:  deduplicated,
		ActorID:       userID.String(),
	})

	return &ConfirmResult{
		DocumentID:    committed.DocumentID,
		VersionID:     committed.ID,
		VersionNumber: committed.VersionNumber,
		Deduplicated:  deduplicated,
	}, nil
}
