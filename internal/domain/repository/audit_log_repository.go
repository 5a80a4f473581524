package repository

import (
	"context"

	"tenantauth/internal/domain/entity"
)

// AuditLogRepository appends audit events. Entries are never updated.
type AuditLogRepository interface {
	Create(ctx context.Context, event *entity.AuditEvent) error
}
