package service

import (
	"context"
	"errors"

	"github.com/RigelNana/docvault/models"
	"github.com/RigelNana/docvault/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PermissionService (user, document, capability) 三元组的授权中心。
// 文档所有者拥有隐式 ADMIN,无需显式授权行。
type PermissionService interface {
	Grant(ctx context.Context, documentID, granteeID uuid.UUID, capability models.Capability, grantedBy uuid.UUID) (*models.Permission, error)
	Revoke(ctx context.Context, documentID, granteeID, actingUserID uuid.UUID) error
	Check(ctx context.Context, documentID, userID uuid.UUID, required models.Capability) (bool, error)
	ListForDocument(ctx context.Context, documentID uuid.UUID, page, pageSize int32) ([]*models.Permission, int64, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page, pageSize int32) ([]*models.Permission, int64, error)
}

type PermissionServiceImpl struct {
	permissions repository.PermissionRepository
	documents   repository.DocumentRepository
}

func NewPermissionService(permissions repository.PermissionRepository, documents repository.DocumentRepository) PermissionService {
	return &PermissionServiceImpl{
		permissions: permissions,
		documents:   documents,
	}
}

func (s *PermissionServiceImpl) Grant(ctx context.Context, documentID, granteeID uuid.UUID, capability models.Capability, grantedBy uuid.UUID) (*models.Permission, error) {
	if !capability.Valid() {
		return nil, ErrInvalidCapability
	}

	allowed, err := s.Check(ctx, documentID, grantedBy, models.CapabilityAdmin)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

	permission := &models.Permission{
		DocumentID: documentID,
		GranteeID:  granteeID,
		Capability: capability,
		GrantedBy:  grantedBy,
	}
	if err := s.permissions.Upsert(ctx, permission); err != nil {
		return nil, storeErr("grant permission", err)
	}
	return permission, nil
}

// Revoke 幂等:撤销不存在的授权静默成功
func (s *PermissionServiceImpl) Revoke(ctx context.Context, documentID, granteeID, actingUserID uuid.UUID) error {
	allowed, err := s.Check(ctx, documentID, actingUserID, models.CapabilityAdmin)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	if err := s.permissions.DeleteByDocumentAndGrantee(ctx, documentID, granteeID); err != nil {
		return storeErr("revoke permission", err)
	}
	return nil
}

func (s *PermissionServiceImpl) Check(ctx context.Context, documentID, userID uuid.UUID, required models.Capability) (bool, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrDocumentNotFound
		}
		return false, storeErr("load document", err)
	}

	if doc.OwnerID == userID {
		return true, nil
	}

	permission, err := s.permissions.GetByDocumentAndGrantee(ctx, documentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, storeErr("load permission", err)
	}
	return permission.Capability.Satisfies(required), nil
}

func (s *PermissionServiceImpl) ListForDocument(ctx context.Context, documentID uuid.UUID, page, pageSize int32) ([]*models.Permission, int64, error) {
	permissions, total, err := s.permissions.GetByDocumentWithPagination(ctx, documentID, normalizePage(page), normalizePageSize(pageSize))
	if err != nil {
		return nil, 0, storeErr("list document permissions", err)
	}
	return permissions, total, nil
}

func (s *PermissionServiceImpl) ListForUser(ctx context.Context, userID uuid.UUID, page, pageSize int32) ([]*models.Permission, int64, error) {
	permissions, total, err := s.permissions.GetByGranteeWithPagination(ctx, userID, normalizePage(page), normalizePageSize(pageSize))
	if err != nil {
		return nil, 0, storeErr("list user permissions", err)
	}
	return permissions, total, nil
}

func normalizePage(page int32) int32 {
	if page < 1 {
		return 1
	}
	return page
}

func normalizePageSize(pageSize int32) int32 {
	if pageSize < 1 || pageSize > 100 {
		return 20
	}
	return pageSize
}
