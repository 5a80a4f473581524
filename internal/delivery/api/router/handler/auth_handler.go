package handler

import (
	"log/slog"
	"net/http"
	"slices"

	"tenantauth/internal/delivery/api/middleware"
	"tenantauth/internal/delivery/api/response"
	deliverycontext "tenantauth/internal/delivery/context"
	domainerrors "tenantauth/internal/domain/errors"
	"tenantauth/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC       usecase.AuthUsecase
	PermissionUC usecase.PermissionUsecase
	Logger       *slog.Logger
}

// AuthHandler serves the password and session endpoints under /auth.
type AuthHandler struct {
	authUC       usecase.AuthUsecase
	permissionUC usecase.PermissionUsecase
	logger       *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC:       params.AuthUC,
		permissionUC: params.PermissionUC,
		logger:       params.Logger,
	}
}

// RegisterRequest opens a new tenant with its first user.
type RegisterRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,max=128"`
	FullName   string `json:"full_name" validate:"max=255"`
	TenantName string `json:"tenant_name" validate:"required,max=255"`
}

// LoginRequest carries password credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token being rotated or revoked.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest may omit the refresh token when only the access token should be revoked.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// bindAndValidate returns an AppError for undecodable or invalid bodies.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("malformed request body")
	}

	return c.Validate(req)
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	out, err := h.authUC.Register(c.Request().Context(), &usecase.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		TenantName: req.TenantName,
		Client:     middleware.ClientMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, RegisterResponse{
		User:      newUserResponse(out.User),
		TokenPair: out.Tokens,
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	out, err := h.authUC.Login(c.Request().Context(), &usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Client:   middleware.ClientMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, out.Tokens)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return domainerrors.ErrInvalidRefreshToken
	}

	pair, err := h.authUC.Refresh(c.Request().Context(), &usecase.RefreshInput{
		RefreshToken: req.RefreshToken,
		Client:       middleware.ClientMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, pair)
}

// Logout handles POST /auth/logout. A bearer token, when present, is revoked as well.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "Invalid request body")
	}

	ctx := c.Request().Context()
	if err := h.authUC.Logout(ctx, req.RefreshToken, middleware.ClientMeta(c)); err != nil {
		return errors.WithStack(err)
	}

	if principal, ok := deliverycontext.GetPrincipal(c); ok {
		if err := h.authUC.RevokeAccessToken(ctx, principal.Claims); err != nil {
			return errors.WithStack(err)
		}
	}

	return response.NoContent(c)
}

// LogoutAll handles POST /auth/logout-all
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return domainerrors.ErrAuthRequired
	}

	ctx := c.Request().Context()
	revoked, err := h.authUC.LogoutAll(ctx, principal.User, middleware.ClientMeta(c))
	if err != nil {
		return errors.WithStack(err)
	}
	if err := h.authUC.RevokeAccessToken(ctx, principal.Claims); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]int64{"revoked": revoked})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return domainerrors.ErrAuthRequired
	}

	return response.Success(c, http.StatusOK, newUserResponse(principal.User))
}

// MyPermissions handles GET /auth/me/permissions
func (h *AuthHandler) MyPermissions(c echo.Context) error {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return domainerrors.ErrAuthRequired
	}

	granted, err := h.permissionUC.GetEffectivePermissions(c.Request().Context(), principal.User.ID, principal.User.TenantID)
	if err != nil {
		return errors.WithStack(err)
	}

	names := make([]string, 0, len(granted))
	for name := range granted {
		names = append(names, name)
	}
	slices.Sort(names)

	return response.Success(c, http.StatusOK, map[string]any{
		"permissions":  names,
		"is_superuser": principal.User.IsSuperuser,
	})
}
