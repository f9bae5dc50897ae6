package service

import (
	"context"
	"errors"
	"fmt"
)

// 错误分类:NotFound / Conflict / Forbidden / Validation / Expired / Storage
// 所有公开操作只返回这些哨兵(或对其 %w 包装),不向上抛未分类错误
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrVersionNotFound  = errors.New("version not found")
	ErrTokenNotFound    = errors.New("download token not found")

	ErrVersionConflict = errors.New("version number already committed by concurrent upload")

	ErrForbidden = errors.New("permission denied")

	ErrAlreadyPublished = errors.New("document already published")
	ErrNotPublished     = errors.New("document not published")
	ErrNoVersionsYet    = errors.New("document has no committed versions")

	ErrTokenExpired     = errors.New("download token expired")
	ErrTokenAlreadyUsed = errors.New("download token already used")

	ErrSizeMismatch      = errors.New("actual size does not match declared size")
	ErrInvalidChecksum   = errors.New("checksum must be 64 hex characters")
	ErrInvalidSize       = errors.New("size must be non-negative")
	ErrInvalidCapability = errors.New("unknown capability")

	// 瞬态错误,调用方可退避重试;完整性错误永不归入此类
	ErrStorageUnavailable = errors.New("storage temporarily unavailable")
)

// storeErr 包装数据层错误:超时和取消归入瞬态存储错误
func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
