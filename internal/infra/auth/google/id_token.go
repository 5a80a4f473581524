package google

import (
	"context"

	"tenantauth/config"
	"tenantauth/internal/domain/entity"
	"tenantauth/internal/domain/service"

	"github.com/pkg/errors"
	"google.golang.org/api/idtoken"
)

// ValidateFunc validates a raw ID token for an audience.
type ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// IDTokenVerifier verifies Google Sign-In ID tokens sent by clients.
type IDTokenVerifier struct {
	clientID string
	validate ValidateFunc
}

// NewIDTokenVerifier uses Google's published keys through idtoken.Validate.
func NewIDTokenVerifier(cfg *config.Config) service.IDTokenVerifier {
	return NewIDTokenVerifierWithValidator(clientIDFrom(cfg), idtoken.Validate)
}

// NewIDTokenVerifierWithValidator allows swapping the signature validation.
func NewIDTokenVerifierWithValidator(clientID string, validate ValidateFunc) *IDTokenVerifier {
	return &IDTokenVerifier{clientID: clientID, validate: validate}
}

func (v *IDTokenVerifier) Name() string {
	return entity.ProviderGoogle
}

// Verify checks signature, audience and issuer and requires a verified email.
func (v *IDTokenVerifier) Verify(ctx context.Context, idToken string) (*entity.OAuthUserInfo, error) {
	if v.clientID == "" {
		return nil, errors.New("google client id is not configured")
	}

	payload, err := v.validate(ctx, idToken, v.clientID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid ID token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return nil, errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	verified, _ := payload.Claims["email_verified"].(bool)
	if !verified {
		return nil, errors.New("email not verified")
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)

	return normalizeUserInfo(payload.Subject, email, name, picture, verified)
}

func clientIDFrom(cfg *config.Config) string {
	if cfg == nil || cfg.OAuth == nil || cfg.OAuth.Google == nil {
		return ""
	}

	return cfg.OAuth.Google.ClientID
}
