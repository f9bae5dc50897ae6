package models

import (
	"time"

	"github.com/google/uuid"
)

type VersionStatus string

const (
	VersionStatusPending   VersionStatus = "pending"
	VersionStatusCommitted VersionStatus = "committed"
)

// DocumentVersion 对应 document_versions 表,单个文档的不可变版本历史
// (document_id, version_number) 的唯一索引只覆盖 committed 行,
// 预留槽位允许重号,冲突在 commit 时暴露
type DocumentVersion struct {
	Base
	DocumentID       uuid.UUID     `gorm:"type:uuid;not null;index:idx_document_version,unique,where:status = 'committed'" json:"document_id"`
	VersionNumber    int           `gorm:"not null;index:idx_document_version,unique,where:status = 'committed'" json:"version_number"`
	Status           VersionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Filename         string        `gorm:"not null" json:"filename"`
	OriginalFilename string        `gorm:"not null" json:"original_filename"`
	MimeType         string        `gorm:"not null" json:"mime_type"`
	SizeBytes        int64         `gorm:"not null" json:"size_bytes"`
	StoragePath      string        `json:"storage_path"`
	Checksum         string        `gorm:"type:varchar(64);index" json:"checksum"`
	ContentRef       string        `json:"content_ref,omitempty"` // 去重:指向更早版本的存储路径
	UploaderID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"uploader_id"`
	CommittedAt      *time.Time    `json:"committed_at,omitempty"`

	Document *Document `gorm:"foreignKey:DocumentID" json:"-"`
}

func (DocumentVersion) TableName() string {
	return "document_versions"
}
