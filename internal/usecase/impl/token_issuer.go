// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"time"

	"tenantauth/internal/domain/entity"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/domain/service"
	"tenantauth/internal/util"

	"github.com/pkg/errors"
)

// tokenIssuer mints a token pair and persists the hash of its refresh token.
type tokenIssuer struct {
	tokenService service.TokenService
	now          func() time.Time
}

func newTokenIssuer(tokenService service.TokenService) tokenIssuer {
	return tokenIssuer{tokenService: tokenService, now: time.Now}
}

// issue stores the refresh token through refreshRepo, which may be bound to a transaction.
// The raw refresh token exists only in the returned pair.
func (i tokenIssuer) issue(
	ctx context.Context,
	refreshRepo repository.RefreshTokenRepository,
	user *entity.User,
	client entity.ClientMeta,
) (*entity.TokenPair, error) {
	accessToken, err := i.tokenService.CreateAccessToken(user.ID, user.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create access token")
	}

	rawRefreshToken, err := i.tokenService.NewRefreshToken()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create refresh token")
	}

	record := &entity.RefreshToken{
		UserID:    user.ID,
		TokenHash: i.tokenService.HashToken(rawRefreshToken),
		ExpiresAt: i.now().Add(i.tokenService.RefreshTokenTTL()).UTC(),
		UserAgent: util.TruncateString(client.UserAgent, entity.MaxUserAgentLength),
		IPAddress: util.TruncateString(client.IPAddress, entity.MaxIPAddressLength),
	}
	if err := refreshRepo.Create(ctx, record); err != nil {
		return nil, errors.Wrap(err, "failed to store refresh token")
	}

	return &entity.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rawRefreshToken,
		TokenType:    entity.TokenTypeBearer,
		ExpiresIn:    int64(i.tokenService.AccessTokenTTL().Seconds()),
	}, nil
}
