package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/RigelNana/docvault/models"
	"github.com/RigelNana/docvault/pkg/metrics"
	"github.com/RigelNana/docvault/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenService 一次性下载凭证。签发时查一次权限,之后的校验纯凭 token 状态。
type TokenService interface {
	Issue(ctx context.Context, documentID uuid.UUID, versionID *uuid.UUID, issuerID uuid.UUID, ttl time.Duration) (*models.DownloadToken, error)
	Consume(ctx context.Context, token string) (*models.DownloadToken, error)
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}

type TokenServiceImpl struct {
	tokens      repository.TokenRepository
	versions    repository.VersionRepository
	catalog     CatalogService
	permissions PermissionService
	maxTTL      time.Duration
	defaultTTL  time.Duration
}

func NewTokenService(tokens repository.TokenRepository, versions repository.VersionRepository, catalog CatalogService, permissions PermissionService, maxTTL, defaultTTL time.Duration) TokenService {
	if maxTTL <= 0 {
		maxTTL = 24 * time.Hour
	}
	if defaultTTL <= 0 || defaultTTL > maxTTL {
		defaultTTL = maxTTL
	}
	return &TokenServiceImpl{
		tokens:      tokens,
		versions:    versions,
		catalog:     catalog,
		permissions: permissions,
		maxTTL:      maxTTL,
		defaultTTL:  defaultTTL,
	}
}

func generateSecureToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Issue 签发凭证。versionID 为空时解析签发时刻的最新版本并冻结,
// 消费时不再重新解析。超过上限的 ttl 静默收紧,不报错。
func (s *TokenServiceImpl) Issue(ctx context.Context, documentID uuid.UUID, versionID *uuid.UUID, issuerID uuid.UUID, ttl time.Duration) (*models.DownloadToken, error) {
	if _, err := s.catalog.Get(ctx, documentID); err != nil {
		return nil, err
	}

	allowed, err := s.permissions.Check(ctx, documentID, issuerID, models.CapabilityRead)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

	var resolved uuid.UUID
	if versionID != nil {
		version, err := s.versions.GetByID(ctx, *versionID)
		if err != nil || version.DocumentID != documentID || version.Status != models.VersionStatusCommitted {
			return nil, ErrVersionNotFound
		}
		resolved = version.ID
	} else {
		latest, err := s.versions.GetLatestCommitted(ctx, documentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNoVersionsYet
			}
			return nil, storeErr("resolve latest version", err)
		}
		resolved = latest.ID
	}

	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if ttl > s.maxTTL {
		ttl = s.maxTTL
	}

	value, err := generateSecureToken()
	if err != nil {
		return nil, err
	}

	token := &models.DownloadToken{
		Token:      value,
		DocumentID: documentID,
		VersionID:  resolved,
		IssuedBy:   issuerID,
		Status:     models.TokenStatusIssued,
		ExpiresAt:  time.Now().Add(ttl),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, storeErr("issue token", err)
	}
	metrics.TokensIssued.Inc()
	return token, nil
}

// Consume 校验加消费是同一条原子 UPDATE,没有单独的 peek 路径;
// 并发消费同一个 token 恰好一个赢家。
func (s *TokenServiceImpl) Consume(ctx context.Context, token string) (*models.DownloadToken, error) {
	record, err := s.tokens.ConsumeIssued(ctx, token, time.Now())
	if err == nil {
		metrics.TokensConsumed.WithLabelValues("ok").Inc()
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr("consume token", err)
	}

	// 没改到行:查一次区分具体失败原因
	existing, lookupErr := s.tokens.GetByToken(ctx, token)
	if lookupErr != nil {
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			metrics.TokensConsumed.WithLabelValues("not_found").Inc()
			return nil, ErrTokenNotFound
		}
		return nil, storeErr("lookup token", lookupErr)
	}

	switch {
	case existing.Status == models.TokenStatusConsumed:
		metrics.TokensConsumed.WithLabelValues("already_used").Inc()
		return nil, ErrTokenAlreadyUsed
	case existing.Status == models.TokenStatusExpired || !existing.ExpiresAt.After(time.Now()):
		// 顺手把超时但仍标记 ISSUED 的行翻成 EXPIRED
		if markErr := s.tokens.MarkExpired(ctx, token); markErr != nil {
			return nil, storeErr("mark token expired", markErr)
		}
		metrics.TokensConsumed.WithLabelValues("expired").Inc()
		return nil, ErrTokenExpired
	default:
		// 本次 UPDATE 和回查之间被并发消费者抢走
		metrics.TokensConsumed.WithLabelValues("already_used").Inc()
		return nil, ErrTokenAlreadyUsed
	}
}

func (s *TokenServiceImpl) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.tokens.DeleteExpired(ctx, now)
	if err != nil {
		return 0, storeErr("cleanup expired tokens", err)
	}
	metrics.TokensSwept.Add(float64(count))
	return count, nil
}
