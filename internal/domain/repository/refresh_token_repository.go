package repository

import (
	"context"
	"time"

	"tenantauth/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrRefreshTokenNotFound is returned when no usable refresh token matches.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshTokenRepository stores hashed refresh tokens. Rows are revoked, never
// deleted, until the cleanup job removes expired ones.
type RefreshTokenRepository interface {
	// Create persists a new refresh token, representing a user session.
	Create(ctx context.Context, token *entity.RefreshToken) error

	// FindActiveByHash returns the non-revoked token with this hash. Expiry is not checked.
	FindActiveByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)

	// Revoke marks a token revoked. Revoking an already revoked token is a no-op.
	Revoke(ctx context.Context, id uuid.UUID) error

	// RevokeActiveByHash atomically revokes the non-revoked token with this hash and returns it.
	// Among concurrent callers presenting the same token exactly one receives the row;
	// the others get ErrRefreshTokenNotFound.
	RevokeActiveByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)

	// RevokeAllForUser revokes every non-revoked token of the user and returns how many changed.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeleteExpired removes tokens that expired before the given instant.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
