package usecase

import "context"

// CleanupResult reports how many expired rows a cleanup run removed.
type CleanupResult struct {
	RefreshTokens int64
	RevokedTokens int64
}

// CleanupUsecase purges token rows that can no longer authenticate anyone.
type CleanupUsecase interface {
	PurgeExpiredTokens(ctx context.Context) (*CleanupResult, error)
}
