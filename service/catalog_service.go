package service

import (
	"context"
	"errors"

	"github.com/RigelNana/docvault/events"
	"github.com/RigelNana/docvault/models"
	"github.com/RigelNana/docvault/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogService 文档目录:身份、状态流转和 latest 指针的读取方
type CatalogService interface {
	Create(ctx context.Context, ownerID uuid.UUID) (*models.Document, error)
	Get(ctx context.Context, documentID uuid.UUID) (*models.Document, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, page, pageSize int32) ([]*models.Document, int64, error)
	Publish(ctx context.Context, documentID, actingUserID uuid.UUID) (*models.Document, error)
	Unpublish(ctx context.Context, documentID, actingUserID uuid.UUID) (*models.Document, error)
	Delete(ctx context.Context, documentID, actingUserID uuid.UUID) error
}

type CatalogServiceImpl struct {
	documents   repository.DocumentRepository
	versions    repository.VersionRepository
	permissions PermissionService
	publisher   *events.Publisher
}

func NewCatalogService(documents repository.DocumentRepository, versions repository.VersionRepository, permissions PermissionService, publisher *events.Publisher) CatalogService {
	return &CatalogServiceImpl{
		documents:   documents,
		versions:    versions,
		permissions: permissions,
		publisher:   publisher,
	}
}

func (s *CatalogServiceImpl) Create(ctx context.Context, ownerID uuid.UUID) (*models.Document, error) {
	doc := &models.Document{
		OwnerID: ownerID,
		Status:  models.DocumentStatusDraft,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, storeErr("create document", err)
	}
	return doc, nil
}

func (s *CatalogServiceImpl) Get(ctx context.Context, documentID uuid.UUID) (*models.Document, error) {
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

func (s *CatalogServiceImpl) ListByOwner(ctx context.Context, ownerID uuid.UUID, page, pageSize int32) ([]*models.Document, int64, error) {
	documents, total, err := s.documents.GetByOwnerWithPagination(ctx, ownerID, normalizePage(page), normalizePageSize(pageSize))
	if err != nil {
		return nil, 0, storeErr("list documents", err)
	}
	return documents, total, nil
}

// Publish 要求至少一个已提交版本,DRAFT -> PUBLISHED
func (s *CatalogServiceImpl) Publish(ctx context.Context, documentID, actingUserID uuid.UUID) (*models.Document, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := s.requireCapability(ctx, documentID, actingUserID, models.CapabilityWrite); err != nil {
		return nil, err
	}

	if doc.Status == models.DocumentStatusPublished {
		return nil, ErrAlreadyPublished
	}

	count, err := s.versions.CountCommitted(ctx, documentID)
	if err != nil {
		return nil, storeErr("count versions", err)
	}
	if count == 0 {
		return nil, ErrNoVersionsYet
	}

	if err := s.documents.UpdateStatus(ctx, documentID, models.DocumentStatusPublished); err != nil {
		return nil, storeErr("publish document", err)
	}
	doc.Status = models.DocumentStatusPublished

	s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeDocumentPublished,
		DocumentID: documentID.String(),
		ActorID:    actingUserID.String(),
	})
	return doc, nil
}

func (s *CatalogServiceImpl) Unpublish(ctx context.Context, documentID, actingUserID uuid.UUID) (*models.Document, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := s.requireCapability(ctx, documentID, actingUserID, models.CapabilityWrite); err != nil {
		return nil, err
	}

	if doc.Status != models.DocumentStatusPublished {
		return nil, ErrNotPublished
	}

	if err := s.documents.UpdateStatus(ctx, documentID, models.DocumentStatusDraft); err != nil {
		return nil, storeErr("unpublish document", err)
	}
	doc.Status = models.DocumentStatusDraft
	return doc, nil
}

// Delete 软删除,终态;物理字节回收交给外部 GC 流程
func (s *CatalogServiceImpl) Delete(ctx context.Context, documentID, actingUserID uuid.UUID) error {
	if _, err := s.Get(ctx, documentID); err != nil {
		return err
	}

	if err := s.requireCapability(ctx, documentID, actingUserID, models.CapabilityAdmin); err != nil {
		return err
	}

	if err := s.documents.UpdateStatus(ctx, documentID, models.DocumentStatusDeleted); err != nil {
		return storeErr("delete document", err)
	}

	s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeDocumentDeleted,
		DocumentID: documentID.String(),
		ActorID:    actingUserID.String(),
	})
	return nil
}

func (s *CatalogServiceImpl) requireCapability(ctx context.Context, documentID, userID uuid.UUID, required models.Capability) error {
	allowed, err := s.permissions.Check(ctx, documentID, userID, required)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}
