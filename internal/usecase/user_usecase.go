package usecase

import (
	"context"

	"tenantauth/internal/domain/entity"

	"github.com/google/uuid"
)

// UpdateUserInput holds the profile fields to change. Nil fields are left as they are.
type UpdateUserInput struct {
	Email    *string
	FullName *string
}

// UserPage is one page of a tenant's users.
type UserPage struct {
	Users    []*entity.User
	Total    int64
	Page     int
	PageSize int
}

// UserUsecase manages users inside the caller's tenant. Users of other tenants are reported as not found.
type UserUsecase interface {
	// GetUser returns the user only when it belongs to tenantID.
	GetUser(ctx context.Context, tenantID, userID uuid.UUID) (*entity.User, error)

	// ListUsers pages through the tenant's users, newest first. Page starts at 1.
	ListUsers(ctx context.Context, tenantID uuid.UUID, page, pageSize int) (*UserPage, error)

	// UpdateUser changes email and full name. An email already used in the tenant is email_exists.
	UpdateUser(ctx context.Context, tenantID, userID uuid.UUID, input *UpdateUserInput) (*entity.User, error)

	// SetActive activates or deactivates the user.
	SetActive(ctx context.Context, tenantID, userID uuid.UUID, active bool) (*entity.User, error)
}
