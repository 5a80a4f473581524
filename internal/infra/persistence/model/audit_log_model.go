package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLogModel mirrors the append-only 'audit_logs' table.
type AuditLogModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantID     *uuid.UUID     `gorm:"type:uuid;index"`
	UserID       *uuid.UUID     `gorm:"type:uuid;index"`
	Action       string         `gorm:"type:varchar(64);not null;index"`
	ResourceType string         `gorm:"type:varchar(64)"`
	ResourceID   string         `gorm:"type:varchar(255)"`
	IPAddress    string         `gorm:"type:varchar(45)"`
	UserAgent    string         `gorm:"type:varchar(512)"`
	RequestID    string         `gorm:"type:varchar(64)"`
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"not null;index"`
}

// TableName explicitly sets the table name for GORM.
func (AuditLogModel) TableName() string {
	return "audit_logs"
}
