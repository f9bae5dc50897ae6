package handler

import (
	"log"
	"net/http"

	"github.com/RigelNana/docvault/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UploadHandler struct {
	uploads service.UploadService
}

func NewUploadHandler(uploads service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

type initiateUploadRequest struct {
	DocumentID *string `json:"document_id"`
	Filename   string  `json:"filename" binding:"required"`
	MimeType   string  `json:"mime_type"`
	Size       int64   `json:"size"`
}

// InitiateUpload 两阶段上传第一步
// POST /api/uploads/initiate
func (h *UploadHandler) InitiateUpload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req initiateUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "detail": err.Error()})
		return
	}
	if req.MimeType == "" {
		req.MimeType = "application/octet-stream"
	}

	var documentID *uuid.UUID
	if req.DocumentID != nil && *req.DocumentID != "" {
		id, err := uuid.Parse(*req.DocumentID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document_id"})
			return
		}
		documentID = &id
	}

	result, err := h.uploads.Initiate(c.Request.Context(), documentID, req.Filename, req.MimeType, req.Size, userID)
	if err != nil {
		log.Printf("InitiateUpload failed: user=%s err=%v", userID, err)
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type confirmUploadRequest struct {
	VersionID   string `json:"version_id" binding:"required"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum" binding:"required"`
	StoragePath string `json:"storage_path" binding:"required"`
}

// ConfirmUpload 两阶段上传第二步
// POST /api/uploads/confirm
func (h *UploadHandler) ConfirmUpload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req confirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "detail": err.Error()})
		return
	}

	versionID, err := uuid.Parse(req.VersionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version_id"})
		return
	}

	result, err := h.uploads.Confirm(c.Request.Context(), versionID, req.Size, req.Checksum, req.StoragePath, userID)
	if err != nil {
		log.Printf("ConfirmUpload failed: version=%s err=%v", versionID, err)
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
