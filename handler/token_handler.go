package handler

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/RigelNana/docvault/repository"
	"github.com/RigelNana/docvault/service"
	"github.com/RigelNana/docvault/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const downloadURLExpiry = 10 * time.Minute

type TokenHandler struct {
	tokens   service.TokenService
	versions repository.VersionRepository
	blobs    storage.BlobStore
	baseURL  string
}

func NewTokenHandler(tokens service.TokenService, versions repository.VersionRepository, blobs storage.BlobStore, baseURL string) *TokenHandler {
	return &TokenHandler{tokens: tokens, versions: versions, blobs: blobs, baseURL: baseURL}
}

type issueTokenRequest struct {
	VersionID  *string `json:"version_id"`
	TTLSeconds int64   `json:"ttl_seconds"`
}

// Issue POST /api/documents/:id/tokens
func (h *TokenHandler) Issue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	documentID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "detail": err.Error()})
		return
	}

	var versionID *uuid.UUID
	if req.VersionID != nil && *req.VersionID != "" {
		id, err := parseUUIDField(c, *req.VersionID, "version_id")
		if err != nil {
			return
		}
		versionID = &id
	}

	token, err := h.tokens.Issue(c.Request.Context(), documentID, versionID, userID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		log.Printf("Issue token failed: document=%s err=%v", documentID, err)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":        token.Token,
		"expires_at":   token.ExpiresAt,
		"download_url": fmt.Sprintf("%s/api/download/%s", h.baseURL, token.Token),
	})
}

// Download 消费凭证并返回实际字节的预签名地址
// GET /api/download/:token (无需登录,凭证即授权)
func (h *TokenHandler) Download(c *gin.Context) {
	value := c.Param("token")
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}

	token, err := h.tokens.Consume(c.Request.Context(), value)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	response := gin.H{
		"document_id": token.DocumentID,
		"version_id":  token.VersionID,
	}

	// 去重版本从 content_ref 指向的路径取字节
	if h.blobs != nil {
		version, lookupErr := h.versions.GetByID(c.Request.Context(), token.VersionID)
		if lookupErr == nil {
			path := version.StoragePath
			if version.ContentRef != "" {
				path = version.ContentRef
			}
			if url, urlErr := h.blobs.PresignedGet(c.Request.Context(), path, downloadURLExpiry); urlErr == nil {
				response["download_url"] = url
			} else {
				log.Printf("presign download failed: version=%s err=%v", token.VersionID, urlErr)
			}
		}
	}

	c.JSON(http.StatusOK, response)
}

// Cleanup POST /api/admin/tokens/cleanup
func (h *TokenHandler) Cleanup(c *gin.Context) {
	count, err := h.tokens.CleanupExpired(c.Request.Context(), time.Now())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_count": count})
}
