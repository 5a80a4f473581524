package postgres

import (
	"context"
	"testing"

	"tenantauth/internal/domain/entity"
	"tenantauth/internal/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)
	tenant := &entity.Tenant{Name: "Acme", Slug: "acme", IsActive: true}

	mock.ExpectExec(`INSERT INTO "tenants"`).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), tenant))
	assert.NotEqual(t, uuid.Nil, tenant.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantRepository_CreateSlugTaken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)

	mock.ExpectExec(`INSERT INTO "tenants"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_tenants_slug"})

	err := repo.Create(context.Background(), &entity.Tenant{Name: "Acme", Slug: "acme"})
	assert.ErrorIs(t, err, repository.ErrTenantSlugTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantRepository_SlugExists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "tenants" WHERE slug = \$1`).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.SlugExists(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantRepository_FindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "tenants" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "is_active", "created_at", "updated_at"}))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrTenantNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
