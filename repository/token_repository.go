package repository

import (
	"context"
	"time"

	"github.com/RigelNana/docvault/models"
	"gorm.io/gorm"
)

type TokenRepository interface {
	BaseRepository[models.DownloadToken]
	GetByToken(ctx context.Context, token string) (*models.DownloadToken, error)
	ConsumeIssued(ctx context.Context, token string, now time.Time) (*models.DownloadToken, error)
	MarkExpired(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type TokenRepositoryImpl struct {
	*BaseRepositoryImpl[models.DownloadToken]
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &TokenRepositoryImpl{
		BaseRepositoryImpl: NewBaseRepository[models.DownloadToken](db),
	}
}

func (r *TokenRepositoryImpl) GetByToken(ctx context.Context, token string) (*models.DownloadToken, error) {
	var record models.DownloadToken
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ConsumeIssued 单条 UPDATE 完成校验加消费,并发消费者只有一个能改到行。
// 没改到行时返回 gorm.ErrRecordNotFound,由调用方区分具体原因。
func (r *TokenRepositoryImpl) ConsumeIssued(ctx context.Context, token string, now time.Time) (*models.DownloadToken, error) {
	result := r.db.WithContext(ctx).Model(&models.DownloadToken{}).
		Where("token = ? AND status = ? AND expires_at > ?", token, models.TokenStatusIssued, now).
		Updates(map[string]interface{}{
			"status":      models.TokenStatusConsumed,
			"consumed_at": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetByToken(ctx, token)
}

// MarkExpired 只允许 ISSUED -> EXPIRED,已消费的行不动
func (r *TokenRepositoryImpl) MarkExpired(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Model(&models.DownloadToken{}).
		Where("token = ? AND status = ?", token, models.TokenStatusIssued).
		Update("status", models.TokenStatusExpired).Error
}

// DeleteExpired 不论消费状态,过期即删;删除可交换,重复执行安全
func (r *TokenRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.DownloadToken{})
	return result.RowsAffected, result.Error
}
