package models

import (
	"github.com/google/uuid"
)

type Capability string

const (
	CapabilityRead  Capability = "READ"
	CapabilityWrite Capability = "WRITE"
	CapabilityAdmin Capability = "ADMIN"
)

func (c Capability) Valid() bool {
	switch c {
	case CapabilityRead, CapabilityWrite, CapabilityAdmin:
		return true
	}
	return false
}

func (c Capability) rank() int {
	switch c {
	case CapabilityRead:
		return 1
	case CapabilityWrite:
		return 2
	case CapabilityAdmin:
		return 3
	}
	return 0
}

// Satisfies 能力全序:READ < WRITE < ADMIN
func (c Capability) Satisfies(required Capability) bool {
	return c.rank() >= required.rank()
}

// Permission 每个 (document, grantee) 最多一条有效记录,grant 走 upsert
type Permission struct {
	Base
	DocumentID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_document_grantee;index" json:"document_id"`
	GranteeID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_document_grantee;index" json:"grantee_id"`
	Capability Capability `gorm:"type:varchar(10);not null" json:"capability"`
	GrantedBy  uuid.UUID  `gorm:"type:uuid;not null" json:"granted_by"`
}

func (Permission) TableName() string {
	return "permissions"
}
