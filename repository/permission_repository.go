package repository

import (
	"context"

	"github.com/RigelNana/docvault/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PermissionRepository interface {
	BaseRepository[models.Permission]
	Upsert(ctx context.Context, permission *models.Permission) error
	GetByDocumentAndGrantee(ctx context.Context, documentID, granteeID uuid.UUID) (*models.Permission, error)
	DeleteByDocumentAndGrantee(ctx context.Context, documentID, granteeID uuid.UUID) error
	GetByDocumentWithPagination(ctx context.Context, documentID uuid.UUID, page, pageSize int32) ([]*models.Permission, int64, error)
	GetByGranteeWithPagination(ctx context.Context, granteeID uuid.UUID, page, pageSize int32) ([]*models.Permission, int64, error)
}

type PermissionRepositoryImpl struct {
	*BaseRepositoryImpl[models.Permission]
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &PermissionRepositoryImpl{
		BaseRepositoryImpl: NewBaseRepository[models.Permission](db),
	}
}

// Upsert 对 (document_id, grantee_id) 原子替换,不追加重复行
func (r *PermissionRepositoryImpl) Upsert(ctx context.Context, permission *models.Permission) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}, {Name: "grantee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"capability", "granted_by", "updated_at"}),
	}).Create(permission).Error
}

func (r *PermissionRepositoryImpl) GetByDocumentAndGrantee(ctx context.Context, documentID, granteeID uuid.UUID) (*models.Permission, error) {
	var permission models.Permission
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND grantee_id = ?", documentID, granteeID).
		First(&permission).Error
	if err != nil {
		return nil, err
	}
	return &permission, nil
}

func (r *PermissionRepositoryImpl) DeleteByDocumentAndGrantee(ctx context.Context, documentID, granteeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("document_id = ? AND grantee_id = ?", documentID, granteeID).
		Delete(&models.Permission{}).Error
}

func (r *PermissionRepositoryImpl) GetByDocumentWithPagination(ctx context.Context, documentID uuid.UUID, page, pageSize int32) ([]*models.Permission, int64, error) {
	var permissions []*models.Permission
	var total int64

	offset := (page - 1) * pageSize

	err := r.db.WithContext(ctx).Model(&models.Permission{}).
		Where("document_id = ?", documentID).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Limit(int(pageSize)).
		Offset(int(offset)).
		Order("created_at DESC").
		Find(&permissions).Error
	if err != nil {
		return nil, 0, err
	}

	return permissions, total, nil
}

func (r *PermissionRepositoryImpl) GetByGranteeWithPagination(ctx context.Context, granteeID uuid.UUID, page, pageSize int32) ([]*models.Permission, int64, error) {
	var permissions []*models.Permission
	var total int64

	offset := (page - 1) * pageSize

	err := r.db.WithContext(ctx).Model(&models.Permission{}).
		Where("grantee_id = ?", granteeID).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = r.db.WithContext(ctx).
		Where("grantee_id = ?", granteeID).
		Limit(int(pageSize)).
		Offset(int(offset)).
		Order("created_at DESC").
		Find(&permissions).Error
	if err != nil {
		return nil, 0, err
	}

	return permissions, total, nil
}
