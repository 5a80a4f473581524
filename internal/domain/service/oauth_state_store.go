package service

import (
	"context"
	"time"

	"tenantauth/internal/domain/entity"
	"tenantauth/internal/errors"
)

// ErrOAuthStateNotFound is returned for unknown, expired, malformed or already consumed state values.
var ErrOAuthStateNotFound = errors.New("oauth state not found")

// OAuthStateStore holds one-time OAuth CSRF state shared by every API instance.
type OAuthStateStore interface {
	Store(ctx context.Context, state string, data entity.OAuthState, ttl time.Duration) error

	// Consume atomically reads and deletes the state. A second call for the same state fails.
	Consume(ctx context.Context, state string) (*entity.OAuthState, error)
}
