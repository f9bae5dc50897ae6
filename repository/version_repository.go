package repository

import (
	"context"
	"errors"
	"time"

	"github.com/RigelNana/docvault/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommitParams 确认上传时回填到预留版本行的字段
type CommitParams struct {
	Filename    string
	MimeType    string
	SizeBytes   int64
	StoragePath string
	Checksum    string
}

type VersionRepository interface {
	BaseRepository[models.DocumentVersion]
	CountCommitted(ctx context.Context, documentID uuid.UUID) (int64, error)
	GetCommittedByDocument(ctx context.Context, documentID uuid.UUID) ([]*models.DocumentVersion, error)
	GetLatestCommitted(ctx context.Context, documentID uuid.UUID) (*models.DocumentVersion, error)
	GetCommittedByChecksum(ctx context.Context, checksum string) (*models.DocumentVersion, error)
	CommitPending(ctx context.Context, id uuid.UUID, params CommitParams) (*models.DocumentVersion, error)
	DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error)
}

type VersionRepositoryImpl struct {
	*BaseRepositoryImpl[models.DocumentVersion]
}

func NewVersionRepository(db *gorm.DB) VersionRepository {
	return &VersionRepositoryImpl{
		BaseRepositoryImpl: NewBaseRepository[models.DocumentVersion](db),
	}
}

func (r *VersionRepositoryImpl) CountCommitted(ctx context.Context, documentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DocumentVersion{}).
		Where("document_id = ? AND status = ?", documentID, models.VersionStatusCommitted).
		Count(&count).Error
	return count, err
}

func (r *VersionRepositoryImpl) GetCommittedByDocument(ctx context.Context, documentID uuid.UUID) ([]*models.DocumentVersion, error) {
	var versions []*models.DocumentVersion
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND status = ?", documentID, models.VersionStatusCommitted).
		Order("version_number DESC").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *VersionRepositoryImpl) GetLatestCommitted(ctx context.Context, documentID uuid.UUID) (*models.DocumentVersion, error) {
	var version models.DocumentVersion
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND status = ?", documentID, models.VersionStatusCommitted).
		Order("version_number DESC").
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// GetCommittedByChecksum 跨文档按校验和查找最早提交的版本,用于去重
func (r *VersionRepositoryImpl) GetCommittedByChecksum(ctx context.Context, checksum string) (*models.DocumentVersion, error) {
	var version models.DocumentVersion
	err := r.db.WithContext(ctx).
		Where("checksum = ? AND status = ?", checksum, models.VersionStatusCommitted).
		Order("committed_at ASC").
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// CommitPending 在单个事务里提交预留版本:
// 去重查找、回填、状态翻转、latest 指针推进。
// 已提交的版本原样返回(重试 confirm 幂等)。
// (document_id, version_number) 部分唯一索引冲突时返回 gorm.ErrDuplicatedKey。
func (r *VersionRepositoryImpl) CommitPending(ctx context.Context, id uuid.UUID, params CommitParams) (*models.DocumentVersion, error) {
	var committed *models.DocumentVersion

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var version models.DocumentVersion
		if err := tx.First(&version, "id = ?", id).Error; err != nil {
			return err
		}

		if version.Status == models.VersionStatusCommitted {
			committed = &version
			return nil
		}

		var prior models.DocumentVersion
		err := tx.Where("checksum = ? AND status = ? AND id <> ?", params.Checksum, models.VersionStatusCommitted, id).
			Order("committed_at ASC").
			First(&prior).Error
		if err == nil {
			version.ContentRef = prior.StoragePath
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now()
		if params.Filename != "" {
			version.Filename = params.Filename
		}
		if params.MimeType != "" {
			version.MimeType = params.MimeType
		}
		version.SizeBytes = params.SizeBytes
		version.StoragePath = params.StoragePath
		version.Checksum = params.Checksum
		version.Status = models.VersionStatusCommitted
		version.CommittedAt = &now

		if err := tx.Save(&version).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Document{}).
			Where("id = ?", version.DocumentID).
			Update("latest_version_id", version.ID).Error; err != nil {
			return err
		}

		committed = &version
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// DeleteStalePending 清理被放弃的预留槽位(initiate 后从未 confirm)
func (r *VersionRepositoryImpl) DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.VersionStatusPending, cutoff).
		Delete(&models.DocumentVersion{})
	return result.RowsAffected, result.Error
}
