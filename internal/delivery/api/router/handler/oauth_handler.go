package handler

import (
	"log/slog"
	"net/http"
	"slices"

	"tenantauth/internal/delivery/api/middleware"
	"tenantauth/internal/delivery/api/response"
	"tenantauth/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// OAuthHandlerParams holds dependencies for OAuthHandler, injected by Fx.
type OAuthHandlerParams struct {
	fx.In

	OAuthUC usecase.OAuthUsecase
	Logger  *slog.Logger
}

// OAuthHandler serves the provider sign-in endpoints under /auth/oauth.
type OAuthHandler struct {
	oauthUC usecase.OAuthUsecase
	logger  *slog.Logger
}

// NewOAuthHandler is the constructor for OAuthHandler
func NewOAuthHandler(params OAuthHandlerParams) *OAuthHandler {
	return &OAuthHandler{
		oauthUC: params.OAuthUC,
		logger:  params.Logger,
	}
}

// IDTokenRequest carries an ID token the client obtained from the provider directly.
type IDTokenRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// Providers handles GET /auth/oauth/providers
func (h *OAuthHandler) Providers(c echo.Context) error {
	providers := h.oauthUC.ListProviders(c.Request().Context())
	slices.Sort(providers)

	return response.Success(c, http.StatusOK, map[string][]string{"providers": providers})
}

// Authorize handles GET /auth/oauth/:provider/authorize.
// With ?redirect=true the browser is sent straight to the provider.
func (h *OAuthHandler) Authorize(c echo.Context) error {
	out, err := h.oauthUC.Authorize(c.Request().Context(), c.Param("provider"), c.QueryParam("redirect_uri"))
	if err != nil {
		return errors.WithStack(err)
	}

	if c.QueryParam("redirect") == "true" {
		return c.Redirect(http.StatusTemporaryRedirect, out.URL)
	}

	return response.Success(c, http.StatusOK, map[string]string{
		"url":   out.URL,
		"state": out.State,
	})
}

// Callback handles GET /auth/oauth/:provider/callback
func (h *OAuthHandler) Callback(c echo.Context) error {
	out, err := h.oauthUC.Callback(c.Request().Context(), &usecase.CallbackInput{
		Provider:         c.Param("provider"),
		Code:             c.QueryParam("code"),
		State:            c.QueryParam("state"),
		Error:            c.QueryParam("error"),
		ErrorDescription: c.QueryParam("error_description"),
		Client:           middleware.ClientMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, out.Tokens)
}

// IDToken handles POST /auth/oauth/:provider/token
func (h *OAuthHandler) IDToken(c echo.Context) error {
	var req IDTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	out, err := h.oauthUC.SignInWithIDToken(c.Request().Context(), &usecase.IDTokenInput{
		Provider: c.Param("provider"),
		IDToken:  req.IDToken,
		Client:   middleware.ClientMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, out.Tokens)
}
