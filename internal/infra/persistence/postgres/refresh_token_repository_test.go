package postgres

import (
	"context"
	"testing"
	"time"

	"tenantauth/internal/domain/entity"
	"tenantauth/internal/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokenRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)
	token := &entity.RefreshToken{
		UserID:    uuid.New(),
		TokenHash: "abc123",
		ExpiresAt: time.Now().Add(time.Hour),
		UserAgent: "curl/8",
		IPAddress: "10.0.0.1",
	}

	mock.ExpectExec(`INSERT INTO "refresh_tokens"`).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), token))
	assert.NotEqual(t, uuid.Nil, token.ID)
	assert.False(t, token.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_FindActiveByHashExcludesRevoked(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "refresh_tokens" WHERE .*token_hash = \$1 AND revoked = \$2`).
		WithArgs("abc123", false, 1).
		WillReturnRows(sqlmock.NewRows(refreshTokenColumns))

	_, err := repo.FindActiveByHash(context.Background(), "abc123")
	assert.ErrorIs(t, err, repository.ErrRefreshTokenNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_RevokeActiveByHash(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)
	id, userID := uuid.New(), uuid.New()
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	mock.ExpectQuery(`UPDATE "refresh_tokens" SET "revoked"=\$1 WHERE .*token_hash = \$2 AND revoked = \$3.* RETURNING \*`).
		WithArgs(true, "abc123", false).
		WillReturnRows(sqlmock.NewRows(refreshTokenColumns).
			AddRow(id, userID, "abc123", expires, true, "ua", "1.2.3.4", time.Now()))

	token, err := repo.RevokeActiveByHash(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, id, token.ID)
	assert.Equal(t, userID, token.UserID)
	assert.True(t, token.Revoked)
	assert.Equal(t, expires, token.ExpiresAt.UTC())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_RevokeActiveByHashLoserSeesNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	mock.ExpectQuery(`UPDATE "refresh_tokens" SET "revoked"=\$1 .* RETURNING \*`).
		WillReturnRows(sqlmock.NewRows(refreshTokenColumns))

	_, err := repo.RevokeActiveByHash(context.Background(), "abc123")
	assert.ErrorIs(t, err, repository.ErrRefreshTokenNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_Revoke(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "refresh_tokens" SET "revoked"=\$1 WHERE id = \$2`).
		WithArgs(true, id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Revoke(context.Background(), id), "revoking twice is a no-op")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_RevokeAllForUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)
	userID := uuid.New()

	mock.ExpectExec(`UPDATE "refresh_tokens" SET "revoked"=\$1 WHERE .*user_id = \$2 AND revoked = \$3`).
		WithArgs(true, userID, false).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.RevokeAllForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_DeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)
	before := time.Now()

	mock.ExpectExec(`DELETE FROM "refresh_tokens" WHERE expires_at < \$1`).
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 5))

	count, err := repo.DeleteExpired(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
