package service

import (
	"time"

	"tenantauth/internal/domain/entity"

	"github.com/google/uuid"
)

// AccessTokenOptions customizes a single access token.
type AccessTokenOptions struct {
	TTL   time.Duration
	Extra map[string]any
}

// AccessTokenOption mutates AccessTokenOptions.
type AccessTokenOption func(*AccessTokenOptions)

// WithTTL overrides the configured access token lifetime.
func WithTTL(ttl time.Duration) AccessTokenOption {
	return func(o *AccessTokenOptions) {
		o.TTL = ttl
	}
}

// WithExtraClaims merges additional claims into the token. Reserved claims cannot be overridden.
func WithExtraClaims(extra map[string]any) AccessTokenOption {
	return func(o *AccessTokenOptions) {
		o.Extra = extra
	}
}

// TokenService issues and verifies access tokens and produces opaque refresh tokens.
type TokenService interface {
	// CreateAccessToken signs an access token for the user within the tenant.
	CreateAccessToken(userID, tenantID uuid.UUID, opts ...AccessTokenOption) (string, error)

	// DecodeToken verifies signature, algorithm and expiry. It returns nil for any invalid token.
	DecodeToken(token string) *entity.TokenClaims

	// NewRefreshToken returns a fresh high-entropy opaque token.
	NewRefreshToken() (string, error)

	// HashToken returns the hex encoded SHA-256 digest used to store refresh tokens.
	HashToken(raw string) string

	AccessTokenTTL() time.Duration
	RefreshTokenTTL() time.Duration
}
