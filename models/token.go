package models

import (
	"time"

	"github.com/google/uuid"
)

type TokenStatus string

const (
	TokenStatusIssued   TokenStatus = "ISSUED"
	TokenStatusConsumed TokenStatus = "CONSUMED"
	TokenStatusExpired  TokenStatus = "EXPIRED"
)

// DownloadToken 一次性下载凭证
// 状态机:ISSUED -> CONSUMED 或 ISSUED -> EXPIRED,无回退
// VersionID 在签发时解析并冻结,消费时不再重新解析
type DownloadToken struct {
	Base
	Token      string      `gorm:"type:varchar(64);not null;uniqueIndex" json:"token"`
	DocumentID uuid.UUID   `gorm:"type:uuid;not null;index" json:"document_id"`
	VersionID  uuid.UUID   `gorm:"type:uuid;not null" json:"version_id"`
	IssuedBy   uuid.UUID   `gorm:"type:uuid;not null" json:"issued_by"`
	Status     TokenStatus `gorm:"type:varchar(10);not null;default:'ISSUED'" json:"status"`
	ExpiresAt  time.Time   `gorm:"not null;index" json:"expires_at"`
	ConsumedAt *time.Time  `json:"consumed_at,omitempty"`
}

func (DownloadToken) TableName() string {
	return "download_tokens"
}
