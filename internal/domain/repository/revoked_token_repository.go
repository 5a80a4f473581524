package repository

import (
	"context"
	"time"
)

// RevokedTokenRepository is the access token blacklist keyed by jti.
type RevokedTokenRepository interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// Revoke blacklists the jti until expiresAt. Revoking twice is a no-op.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error

	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
