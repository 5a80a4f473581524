package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	// TokenTypeAccess is the only token type accepted by the request authentication chain.
	TokenTypeAccess = "access"

	// TokenTypeBearer is the OAuth2 token_type returned to clients.
	TokenTypeBearer = "bearer"

	// MaxUserAgentLength and MaxIPAddressLength bound the client metadata stored with a session.
	MaxUserAgentLength = 512
	MaxIPAddressLength = 45
)

// RefreshToken represents a long-lived, revocable user session.
// Only the SHA-256 hash of the opaque token value is ever persisted.
type RefreshToken struct {
	ID        uuid.UUID // The unique ID for this specific refresh token record.
	UserID    uuid.UUID // Links this session to the User it belongs to.
	TokenHash string    // Hex encoded SHA-256 of the raw token.
	ExpiresAt time.Time // The exact time when this refresh token becomes unusable.
	Revoked   bool      // Revoked rows are kept for audit and removed by cleanup.
	UserAgent string    // Client user agent at issuance, truncated.
	IPAddress string    // Client address at issuance, truncated.
	CreatedAt time.Time // Timestamp of when this session was created.
}

// IsExpired reports whether the token is past its expiry at the given instant.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// RevokedToken blacklists an access token by its jti until the token would have expired anyway.
type RevokedToken struct {
	ID        uuid.UUID
	JTI       string
	ExpiresAt time.Time
	RevokedAt time.Time
}

// TokenClaims is the decoded, verified content of an access token.
type TokenClaims struct {
	UserID    uuid.UUID      // "sub"
	TenantID  uuid.UUID      // "tenant_id"
	Type      string         // "type", defaults to access when absent
	JTI       string         // "jti", unique per token
	IssuedAt  time.Time      // "iat"
	ExpiresAt time.Time      // "exp"
	Extra     map[string]any // Any additional claims carried by the token
}

// TokenPair is what clients receive after a successful login, registration or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
