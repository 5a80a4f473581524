package usecase

import (
	"context"

	"tenantauth/internal/domain/entity"
)

// AuthorizeOutput is the provider consent URL together with the state bound to it.
type AuthorizeOutput struct {
	URL   string
	State string
}

// CallbackInput is the provider redirect as received by the callback endpoint.
type CallbackInput struct {
	Provider         string
	Code             string
	State            string
	Error            string
	ErrorDescription string
	Client           entity.ClientMeta
}

// IDTokenInput carries an ID token obtained by the client directly from the provider.
type IDTokenInput struct {
	Provider string
	IDToken  string
	Client   entity.ClientMeta
}

// OAuthUsecase drives the server-side authorization code flow and ID token sign-in.
type OAuthUsecase interface {
	// ListProviders returns the names of configured providers.
	ListProviders(ctx context.Context) []string

	Authorize(ctx context.Context, provider, redirectURI string) (*AuthorizeOutput, error)
	Callback(ctx context.Context, input *CallbackInput) (*LoginOutput, error)
	SignInWithIDToken(ctx context.Context, input *IDTokenInput) (*LoginOutput, error)
}
