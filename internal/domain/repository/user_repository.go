package repository

import (
	"context"

	"tenantauth/internal/domain/entity"
	"tenantauth/internal/errors"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is a domain-specific error returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserEmailTaken is returned when (tenant_id, email) already exists.
	ErrUserEmailTaken = errors.New("user email already taken")
)

// UserRepository defines the persistence operations for users.
//
// Every method without the Unscoped suffix filters by tenant. The Unscoped
// variants search across all tenants and exist only for the pre-authentication
// flows (login, registration, refresh, OAuth) where the tenant is not yet known.
type UserRepository interface {
	// FindByID retrieves a user inside the given tenant.
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a user by email inside the given tenant.
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*entity.User, error)

	// FindByOAuth retrieves a user by linked provider identity inside the given tenant.
	FindByOAuth(ctx context.Context, tenantID uuid.UUID, provider, oauthID string) (*entity.User, error)

	FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmailUnscoped(ctx context.Context, email string) (*entity.User, error)
	FindByOAuthUnscoped(ctx context.Context, provider, oauthID string) (*entity.User, error)

	// Create persists a new user entity to the storage.
	Create(ctx context.Context, user *entity.User) error

	// LinkOAuth stores the provider identity on an existing user.
	LinkOAuth(ctx context.Context, userID uuid.UUID, provider, oauthID string) error

	// ListByTenant returns one page of the tenant's users, newest first, with the tenant's user count.
	ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]*entity.User, int64, error)

	// LockEmail blocks other transactions locking the same email until the caller's transaction ends.
	// It only has an effect inside TransactionManager.Execute.
	LockEmail(ctx context.Context, email string) error

	// Update writes the profile fields and the active flag of a user inside its tenant.
	Update(ctx context.Context, user *entity.User) error
}
