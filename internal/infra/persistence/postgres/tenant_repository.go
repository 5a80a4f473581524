package postgres

import (
	"context"

	"tenantauth/internal/domain/entity"
	domainerrors "tenantauth/internal/domain/errors"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository is the constructor for tenantRepository.
func NewTenantRepository(db *gorm.DB) repository.TenantRepository {
	return &tenantRepository{db: db}
}

// Create persists a new tenant. A slug collision maps to ErrTenantSlugTaken so callers can retry.
func (repo *tenantRepository) Create(ctx context.Context, tenant *entity.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	tenantM := fromTenantDomain(tenant)

	if err := repo.db.WithContext(ctx).Create(tenantM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return errors.Wrapf(repository.ErrTenantSlugTaken, "slug %q (constraint %s)", tenant.Slug, constraintName(err))
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create tenant")
	}

	tenant.CreatedAt = tenantM.CreatedAt
	tenant.UpdatedAt = tenantM.UpdatedAt

	return nil
}

func (repo *tenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Tenant, error) {
	var tenantM model.TenantModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&tenantM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrTenantNotFound
		}

		return nil, errors.Wrap(err, "failed to find tenant by id")
	}

	return toTenantDomain(&tenantM), nil
}

// SlugExists checks the primary so slug de-duplication sees tenants created moments ago.
func (repo *tenantRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Model(&model.TenantModel{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check tenant slug")
	}

	return count > 0, nil
}

// --- Mapper Functions ---

func toTenantDomain(data *model.TenantModel) *entity.Tenant {
	return &entity.Tenant{
		ID:        data.ID,
		Name:      data.Name,
		Slug:      data.Slug,
		IsActive:  data.IsActive,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}

func fromTenantDomain(data *entity.Tenant) *model.TenantModel {
	return &model.TenantModel{
		ID:        data.ID,
		Name:      data.Name,
		Slug:      data.Slug,
		IsActive:  data.IsActive,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}
