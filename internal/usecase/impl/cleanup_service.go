package impl

import (
	"context"
	"log/slog"
	"time"

	"tenantauth/internal/domain/repository"
	"tenantauth/internal/domain/service"
	"tenantauth/internal/errors"
	"tenantauth/internal/usecase"
	"tenantauth/internal/util"

	"go.uber.org/fx"
)

const (
	cleanupKindRefresh = "refresh_tokens"
	cleanupKindRevoked = "revoked_tokens"
)

// cleanupService implements the CleanupUsecase interface.
type cleanupService struct {
	refreshRepo repository.RefreshTokenRepository
	revokedRepo repository.RevokedTokenRepository
	metrics     service.CleanupMetrics
	logger      *slog.Logger
	now         func() time.Time
}

// CleanupServiceParams holds dependencies for CleanupService, injected by Fx.
type CleanupServiceParams struct {
	fx.In

	RefreshTokenRepo repository.RefreshTokenRepository
	RevokedTokenRepo repository.RevokedTokenRepository
	Metrics          service.CleanupMetrics `optional:"true"`
	Logger           *slog.Logger
}

// NewCleanupService is the constructor for cleanupService.
func NewCleanupService(params CleanupServiceParams) usecase.CleanupUsecase {
	metrics := params.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &cleanupService{
		refreshRepo: params.RefreshTokenRepo,
		revokedRepo: params.RevokedTokenRepo,
		metrics:     metrics,
		logger:      params.Logger,
		now:         time.Now,
	}
}

// PurgeExpiredTokens deletes expired refresh tokens and blacklist entries. Both passes
// run even if one fails; the errors are joined.
func (srv *cleanupService) PurgeExpiredTokens(ctx context.Context) (*usecase.CleanupResult, error) {
	start := srv.now()
	cutoff := start.UTC()
	result := &usecase.CleanupResult{}

	refreshDeleted, refreshErr := srv.refreshRepo.DeleteExpired(ctx, cutoff)
	if refreshErr != nil {
		refreshErr = errors.Wrap(refreshErr, "failed to purge refresh tokens")
	} else {
		result.RefreshTokens = refreshDeleted
		srv.metrics.CleanupDeleted(cleanupKindRefresh, refreshDeleted)
	}

	revokedDeleted, revokedErr := srv.revokedRepo.DeleteExpired(ctx, cutoff)
	if revokedErr != nil {
		revokedErr = errors.Wrap(revokedErr, "failed to purge revoked tokens")
	} else {
		result.RevokedTokens = revokedDeleted
		srv.metrics.CleanupDeleted(cleanupKindRevoked, revokedDeleted)
	}

	logger := requestLogger(ctx, srv.logger)
	if err := errors.Join(refreshErr, revokedErr); err != nil {
		logger.Error("Token cleanup failed", slog.Any("error", err))

		return result, err
	}

	logger.Info("Token cleanup finished",
		slog.Int64(cleanupKindRefresh, result.RefreshTokens),
		slog.Int64(cleanupKindRevoked, result.RevokedTokens),
		slog.String("took", util.FormatDuration(srv.now().Sub(start))),
	)

	return result, nil
}
