package repository

import (
	"context"

	"tenantauth/internal/domain/entity"

	"github.com/google/uuid"
)

// RoleRepository loads tenant-scoped roles with their permissions.
type RoleRepository interface {
	// FindRolesForUser returns the user's roles within the tenant, permissions included,
	// using a constant number of queries.
	FindRolesForUser(ctx context.Context, userID, tenantID uuid.UUID) ([]*entity.Role, error)

	// ListByTenant returns every role defined in the tenant, permissions included.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*entity.Role, error)
}
