package postgres

import (
	"context"

	"tenantauth/internal/domain/entity"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository is the constructor for roleRepository.
func NewRoleRepository(db *gorm.DB) repository.RoleRepository {
	return &roleRepository{db: db}
}

// FindRolesForUser loads roles with one join query; permissions are preloaded in batch.
func (repo *roleRepository) FindRolesForUser(ctx context.Context, userID, tenantID uuid.UUID) ([]*entity.Role, error) {
	var roleModels []model.RoleModel
	err := repo.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND roles.tenant_id = ?", userID, tenantID).
		Preload("Permissions").
		Order("roles.name ASC").
		Find(&roleModels).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user roles")
	}

	return toRoleDomains(roleModels), nil
}

func (repo *roleRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*entity.Role, error) {
	var roleModels []model.RoleModel
	err := repo.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Preload("Permissions").
		Order("name ASC").
		Find(&roleModels).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tenant roles")
	}

	return toRoleDomains(roleModels), nil
}

// --- Mapper Functions ---

func toRoleDomains(data []model.RoleModel) []*entity.Role {
	roles := make([]*entity.Role, 0, len(data))
	for i := range data {
		roles = append(roles, toRoleDomain(&data[i]))
	}

	return roles
}

func toRoleDomain(data *model.RoleModel) *entity.Role {
	permissions := make([]entity.Permission, 0, len(data.Permissions))
	for _, p := range data.Permissions {
		permissions = append(permissions, entity.Permission{
			ID:          p.ID,
			Resource:    p.Resource,
			Action:      p.Action,
			Description: p.Description,
		})
	}

	return &entity.Role{
		ID:          data.ID,
		TenantID:    data.TenantID,
		Name:        data.Name,
		Description: data.Description,
		IsDefault:   data.IsDefault,
		Permissions: permissions,
	}
}
