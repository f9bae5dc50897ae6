package handler

import (
	"net/http"

	"github.com/RigelNana/docvault/models"
	"github.com/RigelNana/docvault/service"
	"github.com/gin-gonic/gin"
)

type PermissionHandler struct {
	permissions service.PermissionService
}

func NewPermissionHandler(permissions service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissions: permissions}
}

type grantRequest struct {
	GranteeID  string `json:"grantee_id" binding:"required"`
	Capability string `json:"capability" binding:"required"`
}

// Grant POST /api/documents/:id/permissions
func (h *PermissionHandler) Grant(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	documentID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "detail": err.Error()})
		return
	}
	granteeID, err := parseUUIDField(c, req.GranteeID, "grantee_id")
	if err != nil {
		return
	}

	permission, err := h.permissions.Grant(c.Request.Context(), documentID, granteeID, models.Capability(req.Capability), userID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, permission)
}

// Revoke DELETE /api/documents/:id/permissions/:granteeId
func (h *PermissionHandler) Revoke(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	documentID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	granteeID, ok := pathUUID(c, "granteeId")
	if !ok {
		return
	}

	if err := h.permissions.Revoke(c.Request.Context(), documentID, granteeID, userID); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "permission revoked"})
}

// ListForDocument 授权行本身是敏感数据,只有 ADMIN 能查
// GET /api/documents/:id/permissions
func (h *PermissionHandler) ListForDocument(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	documentID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	allowed, err := h.permissions.Check(c.Request.Context(), documentID, userID, models.CapabilityAdmin)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if !allowed {
		abortWithServiceError(c, service.ErrForbidden)
		return
	}

	page := queryInt32(c, "page", 1)
	pageSize := queryInt32(c, "page_size", 20)

	permissions, total, err := h.permissions.ListForDocument(c.Request.Context(), documentID, page, pageSize)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": permissions, "total": total, "page": page, "page_size": pageSize})
}

// ListMine GET /api/permissions
func (h *PermissionHandler) ListMine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page := queryInt32(c, "page", 1)
	pageSize := queryInt32(c, "page_size", 20)

	permissions, total, err := h.permissions.ListForUser(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": permissions, "total": total, "page": page, "page_size": pageSize})
}
