package postgres

import (
	"context"
	"time"

	domainerrors "tenantauth/internal/domain/errors"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

type revokedTokenRepository struct {
	db *gorm.DB
}

// NewRevokedTokenRepository is the constructor for revokedTokenRepository.
func NewRevokedTokenRepository(db *gorm.DB) repository.RevokedTokenRepository {
	return &revokedTokenRepository{db: db}
}

// IsRevoked reads from the primary so a logout is effective immediately on every instance.
func (repo *revokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Model(&model.RevokedTokenModel{}).
		Where("jti = ?", jti).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check revoked token")
	}

	return count > 0, nil
}

func (repo *revokedTokenRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	revokedM := &model.RevokedTokenModel{
		ID:        uuid.New(),
		JTI:       jti,
		ExpiresAt: expiresAt,
		RevokedAt: time.Now().UTC(),
	}

	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "jti"}}, DoNothing: true}).
		Create(revokedM).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to revoke access token")
	}

	return nil
}

func (repo *revokedTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&model.RevokedTokenModel{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete expired revoked tokens")
	}

	return result.RowsAffected, nil
}
