// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"tenantauth/internal/domain/entity"
	"tenantauth/internal/errors"

	"github.com/google/uuid"
)

var (
	// ErrTenantNotFound is returned when a tenant lookup misses.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrTenantSlugTaken is returned when the slug unique constraint is violated.
	ErrTenantSlugTaken = errors.New("tenant slug already taken")
)

// TenantRepository persists tenants.
type TenantRepository interface {
	Create(ctx context.Context, tenant *entity.Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Tenant, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}
