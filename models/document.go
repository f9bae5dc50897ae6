package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "DRAFT"
	DocumentStatusPublished DocumentStatus = "PUBLISHED"
	DocumentStatusDeleted   DocumentStatus = "DELETED"
)

// Document 逻辑文档,版本历史挂在 document_versions 表
// 状态流转:DRAFT -> PUBLISHED -> {DRAFT, DELETED},DELETED 为终态
type Document struct {
	Base
	OwnerID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Status          DocumentStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	LatestVersionID *uuid.UUID     `gorm:"type:uuid" json:"latest_version_id,omitempty"`
	Metadata        datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (Document) TableName() string {
	return "documents"
}
