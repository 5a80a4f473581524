// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"tenantauth/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to open a new tenant with its first user.
type RegisterInput struct {
	Email      string
	Password   string
	FullName   string
	TenantName string
	Client     entity.ClientMeta
}

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string
	Password string
	Client   entity.ClientMeta
}

// RefreshInput carries the refresh token presented for rotation.
type RefreshInput struct {
	RefreshToken string
	Client       entity.ClientMeta
}

// --- Output DTOs ---

// RegisterOutput returns the newly created superuser and its first session.
type RegisterOutput struct {
	User   *entity.User
	Tenant *entity.Tenant
	Tokens *entity.TokenPair
}

// LoginOutput returns the authenticated user and the generated tokens.
type LoginOutput struct {
	User   *entity.User
	Tokens *entity.TokenPair
}

// AuthUsecase defines the password based session lifecycle:
// registered, active session, refreshed, logged out.
type AuthUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error)
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// Refresh rotates the refresh token. The presented token is unusable afterwards, even on failure.
	Refresh(ctx context.Context, input *RefreshInput) (*entity.TokenPair, error)

	// Logout revokes the refresh token if it exists. Unknown tokens are not an error.
	Logout(ctx context.Context, refreshToken string, client entity.ClientMeta) error

	// LogoutAll revokes every active session of the user and returns how many were revoked.
	LogoutAll(ctx context.Context, user *entity.User, client entity.ClientMeta) (int64, error)

	// RevokeAccessToken blacklists the access token described by claims until it expires.
	RevokeAccessToken(ctx context.Context, claims *entity.TokenClaims) error

	// RevokeUserSessions lets a superuser end every session of another user in the same tenant.
	RevokeUserSessions(ctx context.Context, actor *entity.User, userID uuid.UUID, client entity.ClientMeta) (int64, error)
}
