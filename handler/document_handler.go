package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/RigelNana/docvault/models"
	"github.com/RigelNana/docvault/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DocumentHandler struct {
	catalog     service.CatalogService
	ledger      service.LedgerService
	permissions service.PermissionService
}

func NewDocumentHandler(catalog service.CatalogService, ledger service.LedgerService, permissions service.PermissionService) *DocumentHandler {
	return &DocumentHandler{catalog: catalog, ledger: ledger, permissions: permissions}
}

// ListDocuments 当前用户拥有的文档,分页
// GET /api/documents?page=1&page_size=20
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page := queryInt32(c, "page", 1)
	pageSize := queryInt32(c, "page_size", 20)

	documents, total, err := h.catalog.ListByOwner(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": documents, "total": total, "page": page, "page_size": pageSize})
}

// GetDocument 需要对文档的 READ 能力
// GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	documentID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if !h.authorizeRead(c, documentID, userID) {
		return
	}

	doc, err := h.catalog.Get(c.Request.Context(), documentID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ListVersions 版本历史,新版本在前,需要 READ 能力
// GET /api/documents/:id/versions
func (h *DocumentHandler) ListVersions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	documentID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if !h.authorizeRead(c, documentID, userID) {
		return
	}

	versions, err := h.ledger.ListVersions(c.Request.Context(), documentID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// Publish POST /api/documents/:id/publish
func (h *DocumentHandler) Publish(c *gin.Context) {
	h.transition(c, h.catalog.Publish)
}

// Unpublish POST /api/documents/:id/unpublish
func (h *DocumentHandler) Unpublish(c *gin.Context) {
	h.transition(c, h.catalog.Unpublish)
}

// Delete DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	documentID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.Delete(c.Request.Context(), documentID, userID); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
}

func (h *DocumentHandler) transition(c *gin.Context, op func(ctx context.Context, documentID, actingUserID uuid.UUID) (*models.Document, error)) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	documentID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	doc, err := op(c.Request.Context(), documentID, userID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// authorizeRead 失败时已写入响应
func (h *DocumentHandler) authorizeRead(c *gin.Context, documentID, userID uuid.UUID) bool {
	allowed, err := h.permissions.Check(c.Request.Context(), documentID, userID, models.CapabilityRead)
	if err != nil {
		abortWithServiceError(c, err)
		return false
	}
	if !allowed {
		abortWithServiceError(c, service.ErrForbidden)
		return false
	}
	return true
}

func queryInt32(c *gin.Context, name string, fallback int32) int32 {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return int32(n)
		}
	}
	return fallback
}
