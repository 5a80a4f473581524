package handler

import (
	"log/slog"
	"net/http"

	"tenantauth/internal/delivery/api/middleware"
	"tenantauth/internal/delivery/api/response"
	deliverycontext "tenantauth/internal/delivery/context"
	domainerrors "tenantauth/internal/domain/errors"
	"tenantauth/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// TenantHandlerParams holds dependencies for TenantHandler, injected by Fx.
type TenantHandlerParams struct {
	fx.In

	AuthUC       usecase.AuthUsecase
	UserUC       usecase.UserUsecase
	PermissionUC usecase.PermissionUsecase
	Logger       *slog.Logger
}

// TenantHandler serves tenant administration endpoints. Every lookup is bound to the caller's tenant.
type TenantHandler struct {
	authUC       usecase.AuthUsecase
	userUC       usecase.UserUsecase
	permissionUC usecase.PermissionUsecase
	logger       *slog.Logger
}

// NewTenantHandler is the constructor for TenantHandler
func NewTenantHandler(params TenantHandlerParams) *TenantHandler {
	return &TenantHandler{
		authUC:       params.AuthUC,
		userUC:       params.UserUC,
		permissionUC: params.PermissionUC,
		logger:       params.Logger,
	}
}

// ListRoles handles GET /api/v1/tenant/roles
func (h *TenantHandler) ListRoles(c echo.Context) error {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return domainerrors.ErrAuthRequired
	}

	roles, err := h.permissionUC.ListTenantRoles(c.Request().Context(), principal.User.TenantID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newRoleResponses(roles))
}

// GetUser handles GET /api/v1/tenant/users/:id
func (h *TenantHandler) GetUser(c echo.Context) error {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return domainerrors.ErrAuthRequired
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("id must be a UUID")
	}

	user, err := h.userUC.GetUser(c.Request().Context(), principal.User.TenantID, userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserResponse(user))
}

// ListUsersRequest pages through the tenant's users.
type ListUsersRequest struct {
	Page     int `query:"page" validate:"omitempty,min=1"`
	PageSize int `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// UpdateUserRequest changes profile fields. Omitted fields keep their value.
type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=255"`
}

// ListUsers handles GET /api/v1/tenant/users
func (h *TenantHandler) ListUsers(c echo.Context) error {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return domainerrors.ErrAuthRequired
	}

	var req ListUsersRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	page, err := h.userUC.ListUsers(c.Request().Context(), principal.User.TenantID, req.Page, req.PageSize)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserListResponse(page))
}

// UpdateUser handles PATCH /api/v1/tenant/users/:id
func (h *TenantHandler) UpdateUser(c echo.Context) error {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return domainerrors.ErrAuthRequired
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("id must be a UUID")
	}

	var req UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userUC.UpdateUser(c.Request().Context(), principal.User.TenantID, userID, &usecase.UpdateUserInput{
		Email:    req.Email,
		FullName: req.FullName,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserResponse(user))
}

// ActivateUser handles POST /api/v1/tenant/users/:id/activate
func (h *TenantHandler) ActivateUser(c echo.Context) error {
	return h.setActive(c, true)
}

// DeactivateUser handles POST /api/v1/tenant/users/:id/deactivate
func (h *TenantHandler) DeactivateUser(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *TenantHandler) setActive(c echo.Context, active bool) error {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return domainerrors.ErrAuthRequired
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("id must be a UUID")
	}

	user, err := h.userUC.SetActive(c.Request().Context(), principal.User.TenantID, userID, active)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserResponse(user))
}

// RevokeUserSessions handles POST /api/v1/tenant/users/:id/sessions/revoke
func (h *TenantHandler) RevokeUserSessions(c echo.Context) error {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return domainerrors.ErrAuthRequired
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("id must be a UUID")
	}

	revoked, err := h.authUC.RevokeUserSessions(c.Request().Context(), principal.User, userID, middleware.ClientMeta(c))
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]int64{"revoked": revoked})
}
