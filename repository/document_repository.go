package repository

import (
	"context"

	"github.com/RigelNana/docvault/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	BaseRepository[models.Document]
	GetByOwnerWithPagination(ctx context.Context, ownerID uuid.UUID, page, pageSize int32) ([]*models.Document, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus) error
	SetLatestVersion(ctx context.Context, id uuid.UUID, versionID uuid.UUID) error
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type DocumentRepositoryImpl struct {
	*BaseRepositoryImpl[models.Document]
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &DocumentRepositoryImpl{
		BaseRepositoryImpl: NewBaseRepository[models.Document](db),
	}
}

func (r *DocumentRepositoryImpl) GetByOwnerWithPagination(ctx context.Context, ownerID uuid.UUID, page, pageSize int32) ([]*models.Document, int64, error) {
	var documents []*models.Document
	var total int64

	offset := (page - 1) * pageSize

	err := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("owner_id = ? AND status <> ?", ownerID, models.DocumentStatusDeleted).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = r.db.WithContext(ctx).
		Where("owner_id = ? AND status <> ?", ownerID, models.DocumentStatusDeleted).
		Limit(int(pageSize)).
		Offset(int(offset)).
		Order("created_at DESC").
		Find(&documents).Error
	if err != nil {
		return nil, 0, err
	}

	return documents, total, nil
}

func (r *DocumentRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus) error {
	return r.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Update("status", status).Error
}

func (r *DocumentRepositoryImpl) SetLatestVersion(ctx context.Context, id uuid.UUID, versionID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Update("latest_version_id", versionID).Error
}

func (r *DocumentRepositoryImpl) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("owner_id = ? AND status <> ?", ownerID, models.DocumentStatusDeleted).
		Count(&count).Error
	return count, err
}
