package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apimiddleware "tenantauth/internal/delivery/api/middleware"
	"tenantauth/internal/delivery/api/validator"
	deliverycontext "tenantauth/internal/delivery/context"
	"tenantauth/internal/domain/entity"
	domainerrors "tenantauth/internal/domain/errors"
	"tenantauth/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthUsecase struct {
	mock.Mock
}

func (m *mockAuthUsecase) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.RegisterOutput)

	return out, args.Error(1)
}

func (m *mockAuthUsecase) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.LoginOutput)

	return out, args.Error(1)
}

func (m *mockAuthUsecase) Refresh(ctx context.Context, input *usecase.RefreshInput) (*entity.TokenPair, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*entity.TokenPair)

	return out, args.Error(1)
}

func (m *mockAuthUsecase) Logout(ctx context.Context, refreshToken string, client entity.ClientMeta) error {
	return m.Called(ctx, refreshToken, client).Error(0)
}

func (m *mockAuthUsecase) LogoutAll(ctx context.Context, user *entity.User, client entity.ClientMeta) (int64, error) {
	args := m.Called(ctx, user, client)

	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAuthUsecase) RevokeAccessToken(ctx context.Context, claims *entity.TokenClaims) error {
	return m.Called(ctx, claims).Error(0)
}

func (m *mockAuthUsecase) RevokeUserSessions(ctx context.Context, actor *entity.User, userID uuid.UUID, client entity.ClientMeta) (int64, error) {
	args := m.Called(ctx, actor, userID, client)

	return args.Get(0).(int64), args.Error(1)
}

type mockOAuthUsecase struct {
	mock.Mock
}

func (m *mockOAuthUsecase) ListProviders(ctx context.Context) []string {
	return m.Called(ctx).Get(0).([]string)
}

func (m *mockOAuthUsecase) Authorize(ctx context.Context, provider, redirectURI string) (*usecase.AuthorizeOutput, error) {
	args := m.Called(ctx, provider, redirectURI)
	out, _ := args.Get(0).(*usecase.AuthorizeOutput)

	return out, args.Error(1)
}

func (m *mockOAuthUsecase) Callback(ctx context.Context, input *usecase.CallbackInput) (*usecase.LoginOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.LoginOutput)

	return out, args.Error(1)
}

func (m *mockOAuthUsecase) SignInWithIDToken(ctx context.Context, input *usecase.IDTokenInput) (*usecase.LoginOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.LoginOutput)

	return out, args.Error(1)
}

type mockPermissionUsecase struct {
	mock.Mock
	usecase.PermissionUsecase
}

func (m *mockPermissionUsecase) GetEffectivePermissions(ctx context.Context, userID, tenantID uuid.UUID) (map[string]struct{}, error) {
	args := m.Called(ctx, userID, tenantID)
	out, _ := args.Get(0).(map[string]struct{})

	return out, args.Error(1)
}

func (m *mockPermissionUsecase) ListTenantRoles(ctx context.Context, tenantID uuid.UUID) ([]*entity.Role, error) {
	args := m.Called(ctx, tenantID)
	out, _ := args.Get(0).([]*entity.Role)

	return out, args.Error(1)
}

type mockUserUsecase struct {
	mock.Mock
}

func (m *mockUserUsecase) GetUser(ctx context.Context, tenantID, userID uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, tenantID, userID)
	out, _ := args.Get(0).(*entity.User)

	return out, args.Error(1)
}

func (m *mockUserUsecase) ListUsers(ctx context.Context, tenantID uuid.UUID, page, pageSize int) (*usecase.UserPage, error) {
	args := m.Called(ctx, tenantID, page, pageSize)
	out, _ := args.Get(0).(*usecase.UserPage)

	return out, args.Error(1)
}

func (m *mockUserUsecase) UpdateUser(ctx context.Context, tenantID, userID uuid.UUID, input *usecase.UpdateUserInput) (*entity.User, error) {
	args := m.Called(ctx, tenantID, userID, input)
	out, _ := args.Get(0).(*entity.User)

	return out, args.Error(1)
}

func (m *mockUserUsecase) SetActive(ctx context.Context, tenantID, userID uuid.UUID, active bool) (*entity.User, error) {
	args := m.Called(ctx, tenantID, userID, active)
	out, _ := args.Get(0).(*entity.User)

	return out, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validator.New()
	e.HTTPErrorHandler = apimiddleware.NewErrorMiddleware(discardLogger()).HandleHTTPError

	return e
}

// withPrincipal stands in for Authenticate.
func withPrincipal(principal *entity.Principal) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			deliverycontext.SetPrincipal(c, principal)

			return next(c)
		}
	}
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Details any    `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	return env
}

var testPair = &entity.TokenPair{AccessToken: "access", RefreshToken: "refresh", TokenType: entity.TokenTypeBearer, ExpiresIn: 900}

func TestAuthHandler_Register(t *testing.T) {
	authUC := &mockAuthUsecase{}
	h := NewAuthHandler(AuthHandlerParams{AuthUC: authUC, Logger: discardLogger()})
	e := newTestEcho()
	e.POST("/auth/register", h.Register)

	user := &entity.User{ID: uuid.New(), TenantID: uuid.New(), Email: "a@x.com", IsSuperuser: true}
	authUC.On("Register", mock.Anything, mock.MatchedBy(func(in *usecase.RegisterInput) bool {
		return in.Email == "a@x.com" && in.TenantName == "Acme" && in.Client.RequestID != ""
	})).Return(&usecase.RegisterOutput{User: user, Tokens: testPair}, nil)

	rec := serve(e, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"Abc12345!","tenant_name":"Acme"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var data map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	assert.Equal(t, "access", data["access_token"])
	assert.Equal(t, "refresh", data["refresh_token"])
	assert.Equal(t, "bearer", data["token_type"])
	assert.Equal(t, "a@x.com", data["user"].(map[string]any)["email"])
	assert.NotContains(t, rec.Body.String(), "password")
	authUC.AssertExpectations(t)
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	authUC := &mockAuthUsecase{}
	h := NewAuthHandler(AuthHandlerParams{AuthUC: authUC, Logger: discardLogger()})
	e := newTestEcho()
	e.POST("/auth/register", h.Register)

	rec := serve(e, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"Abc12345!"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "validation_failed", env.Error.Code)
	assert.Equal(t, "tenant_name is required", env.Error.Details)

	rec = serve(e, http.MethodPost, "/auth/register", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	authUC.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestAuthHandler_LoginFailure(t *testing.T) {
	authUC := &mockAuthUsecase{}
	h := NewAuthHandler(AuthHandlerParams{AuthUC: authUC, Logger: discardLogger()})
	e := newTestEcho()
	e.POST("/auth/login", h.Login)
	authUC.On("Login", mock.Anything, mock.Anything).Return(nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed"))

	rec := serve(e, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode(t, rec).Error.Code)
}

func TestAuthHandler_Refresh(t *testing.T) {
	authUC := &mockAuthUsecase{}
	h := NewAuthHandler(AuthHandlerParams{AuthUC: authUC, Logger: discardLogger()})
	e := newTestEcho()
	e.POST("/auth/refresh", h.Refresh)
	authUC.On("Refresh", mock.Anything, mock.MatchedBy(func(in *usecase.RefreshInput) bool {
		return in.RefreshToken == "old"
	})).Return(testPair, nil)

	rec := serve(e, http.MethodPost, "/auth/refresh", `{"refresh_token":"old"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e, http.MethodPost, "/auth/refresh", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_refresh_token", decode(t, rec).Error.Code)
}

func TestAuthHandler_LogoutRevokesBearerToken(t *testing.T) {
	authUC := &mockAuthUsecase{}
	h := NewAuthHandler(AuthHandlerParams{AuthUC: authUC, Logger: discardLogger()})
	e := newTestEcho()
	claims := &entity.TokenClaims{JTI: "jti-1"}
	principal := &entity.Principal{User: &entity.User{ID: uuid.New()}, Claims: claims}
	e.POST("/auth/logout", h.Logout, withPrincipal(principal))
	authUC.On("Logout", mock.Anything, "rt", mock.Anything).Return(nil)
	authUC.On("RevokeAccessToken", mock.Anything, claims).Return(nil)

	rec := serve(e, http.MethodPost, "/auth/logout", `{"refresh_token":"rt"}`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	authUC.AssertExpectations(t)
}

func TestAuthHandler_LogoutAll(t *testing.T) {
	authUC := &mockAuthUsecase{}
	h := NewAuthHandler(AuthHandlerParams{AuthUC: authUC, Logger: discardLogger()})
	e := newTestEcho()
	principal := &entity.Principal{User: &entity.User{ID: uuid.New()}, Claims: &entity.TokenClaims{JTI: "j"}}
	e.POST("/auth/logout-all", h.LogoutAll, withPrincipal(principal))
	authUC.On("LogoutAll", mock.Anything, principal.User, mock.Anything).Return(int64(3), nil)
	authUC.On("RevokeAccessToken", mock.Anything, principal.Claims).Return(nil)

	rec := serve(e, http.MethodPost, "/auth/logout-all", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"revoked":3}`, string(decode(t, rec).Data))
}

func TestAuthHandler_MyPermissions(t *testing.T) {
	permissionUC := &mockPermissionUsecase{}
	h := NewAuthHandler(AuthHandlerParams{PermissionUC: permissionUC, Logger: discardLogger()})
	e := newTestEcho()
	user := &entity.User{ID: uuid.New(), TenantID: uuid.New()}
	e.GET("/auth/me/permissions", h.MyPermissions, withPrincipal(&entity.Principal{User: user}))
	permissionUC.On("GetEffectivePermissions", mock.Anything, user.ID, user.TenantID).
		Return(map[string]struct{}{"users:read": {}, "audit:*": {}}, nil)

	rec := serve(e, http.MethodGet, "/auth/me/permissions", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"permissions":["audit:*","users:read"],"is_superuser":false}`, string(decode(t, rec).Data))
}

func TestAuthHandler_MeWithoutPrincipal(t *testing.T) {
	h := NewAuthHandler(AuthHandlerParams{Logger: discardLogger()})
	e := newTestEcho()
	e.GET("/auth/me", h.Me)

	rec := serve(e, http.MethodGet, "/auth/me", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOAuthHandler_Authorize(t *testing.T) {
	oauthUC := &mockOAuthUsecase{}
	h := NewOAuthHandler(OAuthHandlerParams{OAuthUC: oauthUC, Logger: discardLogger()})
	e := newTestEcho()
	e.GET("/auth/oauth/:provider/authorize", h.Authorize)
	oauthUC.On("Authorize", mock.Anything, "google", "").
		Return(&usecase.AuthorizeOutput{URL: "https://accounts.example/auth?state=s", State: "s"}, nil)

	rec := serve(e, http.MethodGet, "/auth/oauth/google/authorize", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://accounts.example/auth?state=s","state":"s"}`, string(decode(t, rec).Data))

	rec = serve(e, http.MethodGet, "/auth/oauth/google/authorize?redirect=true", "")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://accounts.example/auth?state=s", rec.Header().Get(echo.HeaderLocation))
}

func TestOAuthHandler_CallbackPassesQuery(t *testing.T) {
	oauthUC := &mockOAuthUsecase{}
	h := NewOAuthHandler(OAuthHandlerParams{OAuthUC: oauthUC, Logger: discardLogger()})
	e := newTestEcho()
	e.GET("/auth/oauth/:provider/callback", h.Callback)
	oauthUC.On("Callback", mock.Anything, mock.MatchedBy(func(in *usecase.CallbackInput) bool {
		return in.Provider == "google" && in.Code == "c" && in.State == "s"
	})).Return(&usecase.LoginOutput{Tokens: testPair}, nil)
	oauthUC.On("Callback", mock.Anything, mock.MatchedBy(func(in *usecase.CallbackInput) bool {
		return in.Error == "access_denied"
	})).Return(nil, domainerrors.ErrOAuthProviderError.WithDetails("access_denied"))

	rec := serve(e, http.MethodGet, "/auth/oauth/google/callback?code=c&state=s", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e, http.MethodGet, "/auth/oauth/google/callback?error=access_denied", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "oauth_error", env.Error.Code)
	assert.Equal(t, "access_denied", env.Error.Details)
}

func TestOAuthHandler_Providers(t *testing.T) {
	oauthUC := &mockOAuthUsecase{}
	h := NewOAuthHandler(OAuthHandlerParams{OAuthUC: oauthUC, Logger: discardLogger()})
	e := newTestEcho()
	e.GET("/auth/oauth/providers", h.Providers)
	oauthUC.On("ListProviders", mock.Anything).Return([]string{"google"})

	rec := serve(e, http.MethodGet, "/auth/oauth/providers", "")

	assert.JSONEq(t, `{"providers":["google"]}`, string(decode(t, rec).Data))
}

func TestTenantHandler_GetUserRejectsMalformedID(t *testing.T) {
	h := NewTenantHandler(TenantHandlerParams{Logger: discardLogger()})
	e := newTestEcho()
	e.GET("/api/v1/tenant/users/:id", h.GetUser, withPrincipal(&entity.Principal{User: &entity.User{ID: uuid.New()}}))

	rec := serve(e, http.MethodGet, "/api/v1/tenant/users/not-a-uuid", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decode(t, rec).Error.Code)
}

func TestTenantHandler_RevokeUserSessionsOtherTenant(t *testing.T) {
	authUC := &mockAuthUsecase{}
	h := NewTenantHandler(TenantHandlerParams{AuthUC: authUC, Logger: discardLogger()})
	e := newTestEcho()
	actor := &entity.User{ID: uuid.New(), TenantID: uuid.New(), IsSuperuser: true}
	target := uuid.New()
	e.POST("/api/v1/tenant/users/:id/sessions/revoke", h.RevokeUserSessions, withPrincipal(&entity.Principal{User: actor}))
	authUC.On("RevokeUserSessions", mock.Anything, actor, target, mock.Anything).
		Return(int64(0), errors.Wrap(domainerrors.ErrNotFound.WithMessage("User not found"), "revoke user sessions"))

	rec := serve(e, http.MethodPost, "/api/v1/tenant/users/"+target.String()+"/sessions/revoke", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec).Error.Code)
}

func TestTenantHandler_ListRoles(t *testing.T) {
	permissionUC := &mockPermissionUsecase{}
	h := NewTenantHandler(TenantHandlerParams{PermissionUC: permissionUC, Logger: discardLogger()})
	e := newTestEcho()
	user := &entity.User{ID: uuid.New(), TenantID: uuid.New()}
	e.GET("/api/v1/tenant/roles", h.ListRoles, withPrincipal(&entity.Principal{User: user}))
	role := &entity.Role{ID: uuid.New(), Name: "reader", Permissions: []entity.Permission{{Resource: "users", Action: "read"}}}
	permissionUC.On("ListTenantRoles", mock.Anything, user.TenantID).Return([]*entity.Role{role}, nil)

	rec := serve(e, http.MethodGet, "/api/v1/tenant/roles", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var roles []RoleResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &roles))
	require.Len(t, roles, 1)
	assert.Equal(t, []string{"users:read"}, roles[0].Permissions)
}

func TestTenantHandler_ListUsers(t *testing.T) {
	userUC := &mockUserUsecase{}
	h := NewTenantHandler(TenantHandlerParams{UserUC: userUC, Logger: discardLogger()})
	e := newTestEcho()
	admin := &entity.User{ID: uuid.New(), TenantID: uuid.New()}
	e.GET("/api/v1/tenant/users", h.ListUsers, withPrincipal(&entity.Principal{User: admin}))
	member := &entity.User{ID: uuid.New(), TenantID: admin.TenantID, Email: "m@x.com", IsActive: true}
	userUC.On("ListUsers", mock.Anything, admin.TenantID, 2, 10).
		Return(&usecase.UserPage{Users: []*entity.User{member}, Total: 11, Page: 2, PageSize: 10}, nil)

	rec := serve(e, http.MethodGet, "/api/v1/tenant/users?page=2&page_size=10", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var list UserListResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &list))
	assert.Equal(t, int64(11), list.Total)
	assert.Equal(t, 2, list.Page)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "m@x.com", list.Items[0].Email)
}

func TestTenantHandler_ListUsersRejectsOversizedPage(t *testing.T) {
	h := NewTenantHandler(TenantHandlerParams{UserUC: &mockUserUsecase{}, Logger: discardLogger()})
	e := newTestEcho()
	e.GET("/api/v1/tenant/users", h.ListUsers, withPrincipal(&entity.Principal{User: &entity.User{ID: uuid.New()}}))

	rec := serve(e, http.MethodGet, "/api/v1/tenant/users?page_size=1000", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decode(t, rec).Error.Code)
}

func TestTenantHandler_UpdateUserEmailExists(t *testing.T) {
	userUC := &mockUserUsecase{}
	h := NewTenantHandler(TenantHandlerParams{UserUC: userUC, Logger: discardLogger()})
	e := newTestEcho()
	admin := &entity.User{ID: uuid.New(), TenantID: uuid.New()}
	target := uuid.New()
	e.PATCH("/api/v1/tenant/users/:id", h.UpdateUser, withPrincipal(&entity.Principal{User: admin}))
	userUC.On("UpdateUser", mock.Anything, admin.TenantID, target, mock.MatchedBy(func(in *usecase.UpdateUserInput) bool {
		return in.Email != nil && *in.Email == "taken@x.com" && in.FullName == nil
	})).Return(nil, errors.Wrap(domainerrors.ErrEmailExists.WithDetails("email: taken@x.com"), "update user"))

	rec := serve(e, http.MethodPatch, "/api/v1/tenant/users/"+target.String(), `{"email":"taken@x.com"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email_exists", decode(t, rec).Error.Code)
	userUC.AssertExpectations(t)
}

func TestTenantHandler_SetActive(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		active bool
	}{
		{"deactivate", "/deactivate", false},
		{"activate", "/activate", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userUC := &mockUserUsecase{}
			h := NewTenantHandler(TenantHandlerParams{UserUC: userUC, Logger: discardLogger()})
			e := newTestEcho()
			admin := &entity.User{ID: uuid.New(), TenantID: uuid.New()}
			e.POST("/api/v1/tenant/users/:id/activate", h.ActivateUser, withPrincipal(&entity.Principal{User: admin}))
			e.POST("/api/v1/tenant/users/:id/deactivate", h.DeactivateUser, withPrincipal(&entity.Principal{User: admin}))
			target := &entity.User{ID: uuid.New(), TenantID: admin.TenantID, IsActive: tt.active}
			userUC.On("SetActive", mock.Anything, admin.TenantID, target.ID, tt.active).Return(target, nil)

			rec := serve(e, http.MethodPost, "/api/v1/tenant/users/"+target.ID.String()+tt.path, "")

			require.Equal(t, http.StatusOK, rec.Code)
			var got UserResponse
			require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
			assert.Equal(t, tt.active, got.IsActive)
			userUC.AssertExpectations(t)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	h := &HealthHandler{
		checks: []dependencyCheck{
			{name: "postgres", ping: func(context.Context) error { return nil }},
			{name: "redis", ping: func(context.Context) error { return errors.New("dial tcp: refused") }},
		},
		logger: discardLogger(),
	}
	e := newTestEcho()
	e.GET("/health", h.Health)

	rec := serve(e, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"postgres":"ok","redis":"unavailable"}}`, string(decode(t, rec).Data))
}
