package usecase

import (
	"context"

	"tenantauth/internal/domain/entity"

	"github.com/google/uuid"
)

// PermissionUsecase answers RBAC questions from role assignments only.
// It never looks at the superuser flag; that bypass belongs to the caller.
type PermissionUsecase interface {
	GetRolesForUser(ctx context.Context, userID, tenantID uuid.UUID) ([]*entity.Role, error)
	ListTenantRoles(ctx context.Context, tenantID uuid.UUID) ([]*entity.Role, error)
	HasPermission(ctx context.Context, userID, tenantID uuid.UUID, resource, action string) (bool, error)
	HasAnyPermission(ctx context.Context, userID, tenantID uuid.UUID, required []entity.PermissionRequirement) (bool, error)

	// HasAllPermissions reports true for an empty requirement list.
	HasAllPermissions(ctx context.Context, userID, tenantID uuid.UUID, required []entity.PermissionRequirement) (bool, error)

	// GetEffectivePermissions flattens the granted permissions into "resource:action" names.
	GetEffectivePermissions(ctx context.Context, userID, tenantID uuid.UUID) (map[string]struct{}, error)
}
