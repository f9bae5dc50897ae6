package handler

import (
	"errors"
	"net/http"

	"github.com/RigelNana/docvault/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentUserID 从认证中间件注入的上下文里取调用方身份
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return uuid.Nil, false
	}
	s, ok := raw.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id format"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
		return uuid.Nil, false
	}
	return id, true
}

func parseUUIDField(c *gin.Context, value, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, err
	}
	return id, nil
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// abortWithServiceError 把 service 层的哨兵错误映射到 HTTP 状态码
func abortWithServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrDocumentNotFound),
		errors.Is(err, service.ErrVersionNotFound),
		errors.Is(err, service.ErrTokenNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrVersionConflict),
		errors.Is(err, service.ErrAlreadyPublished),
		errors.Is(err, service.ErrNotPublished),
		errors.Is(err, service.ErrNoVersionsYet),
		errors.Is(err, service.ErrTokenAlreadyUsed):
		status = http.StatusConflict
	case errors.Is(err, service.ErrTokenExpired):
		status = http.StatusGone
	case errors.Is(err, service.ErrSizeMismatch),
		errors.Is(err, service.ErrInvalidChecksum),
		errors.Is(err, service.ErrInvalidSize),
		errors.Is(err, service.ErrInvalidCapability):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
