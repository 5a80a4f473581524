package impl

import (
	"context"
	"log/slog"

	"tenantauth/internal/domain/entity"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// permissionService implements the PermissionUsecase interface.
type permissionService struct {
	roleRepo repository.RoleRepository
	logger   *slog.Logger
}

// PermissionServiceParams holds dependencies for PermissionService, injected by Fx.
type PermissionServiceParams struct {
	fx.In

	RoleRepo repository.RoleRepository
	Logger   *slog.Logger
}

// NewPermissionService is the constructor for permissionService.
func NewPermissionService(params PermissionServiceParams) usecase.PermissionUsecase {
	return &permissionService{
		roleRepo: params.RoleRepo,
		logger:   params.Logger,
	}
}

func (srv *permissionService) GetRolesForUser(ctx context.Context, userID, tenantID uuid.UUID) ([]*entity.Role, error) {
	roles, err := srv.roleRepo.FindRolesForUser(ctx, userID, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user roles")
	}

	return roles, nil
}

func (srv *permissionService) ListTenantRoles(ctx context.Context, tenantID uuid.UUID) ([]*entity.Role, error) {
	roles, err := srv.roleRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tenant roles")
	}

	return roles, nil
}

func (srv *permissionService) HasPermission(ctx context.Context, userID, tenantID uuid.UUID, resource, action string) (bool, error) {
	roles, err := srv.GetRolesForUser(ctx, userID, tenantID)
	if err != nil {
		return false, err
	}

	return anyRoleGrants(roles, resource, action), nil
}

func (srv *permissionService) HasAnyPermission(ctx context.Context, userID, tenantID uuid.UUID, required []entity.PermissionRequirement) (bool, error) {
	if len(required) == 0 {
		return false, nil
	}

	roles, err := srv.GetRolesForUser(ctx, userID, tenantID)
	if err != nil {
		return false, err
	}

	for _, req := range required {
		if anyRoleGrants(roles, req.Resource, req.Action) {
			return true, nil
		}
	}

	return false, nil
}

func (srv *permissionService) HasAllPermissions(ctx context.Context, userID, tenantID uuid.UUID, required []entity.PermissionRequirement) (bool, error) {
	if len(required) == 0 {
		return true, nil
	}

	roles, err := srv.GetRolesForUser(ctx, userID, tenantID)
	if err != nil {
		return false, err
	}

	for _, req := range required {
		if !anyRoleGrants(roles, req.Resource, req.Action) {
			requestLogger(ctx, srv.logger).Debug("Permission missing",
				slog.String("user_id", userID.String()),
				slog.String("permission", req.String()),
			)

			return false, nil
		}
	}

	return true, nil
}

func (srv *permissionService) GetEffectivePermissions(ctx context.Context, userID, tenantID uuid.UUID) (map[string]struct{}, error) {
	roles, err := srv.GetRolesForUser(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}

	permissions := make(map[string]struct{})
	for _, role := range roles {
		for _, p := range role.Permissions {
			permissions[p.Name()] = struct{}{}
		}
	}

	return permissions, nil
}

func anyRoleGrants(roles []*entity.Role, resource, action string) bool {
	for _, role := range roles {
		if role.Grants(resource, action) {
			return true
		}
	}

	return false
}
