package service

import (
	"context"

	"tenantauth/internal/domain/entity"
)

// OAuthProvider performs the server-side authorization code flow against one identity provider.
type OAuthProvider interface {
	Name() string

	// IsConfigured reports whether client credentials are present.
	IsConfigured() bool

	// DefaultRedirectURI is used when the client does not supply one.
	DefaultRedirectURI() string

	// AuthorizationURL builds the provider consent URL carrying the state value.
	AuthorizationURL(state, redirectURI string) string

	// FetchUserInfo exchanges the code and loads the user's identity.
	FetchUserInfo(ctx context.Context, code, redirectURI string) (*entity.OAuthUserInfo, error)
}

// IDTokenVerifier validates provider issued ID tokens sent directly by clients.
type IDTokenVerifier interface {
	Name() string
	Verify(ctx context.Context, idToken string) (*entity.OAuthUserInfo, error)
}

// OAuthProviderRegistry resolves providers by name.
type OAuthProviderRegistry interface {
	// Provider returns the named provider only when it is configured.
	Provider(name string) (OAuthProvider, bool)

	// Verifier returns the named ID token verifier.
	Verifier(name string) (IDTokenVerifier, bool)

	// Configured lists the names of configured providers, sorted.
	Configured() []string
}
