package service

import (
	"context"

	"tenantauth/internal/domain/entity"
)

// AuditSink records audit events. Record never blocks the caller and never fails the request.
type AuditSink interface {
	Record(ctx context.Context, event entity.AuditEvent)
}
