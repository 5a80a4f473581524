package middleware

import (
	"context"
	"log/slog"
	"strings"

	deliverycontext "tenantauth/internal/delivery/context"
	"tenantauth/internal/domain/entity"
	domainerrors "tenantauth/internal/domain/errors"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/domain/service"
	"tenantauth/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// PermissionMode selects how a rule's permissions combine.
type PermissionMode int

const (
	// ModeOne requires the single listed permission.
	ModeOne PermissionMode = iota
	// ModeAny requires at least one of the listed permissions.
	ModeAny
	// ModeAll requires every listed permission.
	ModeAll
)

func (m PermissionMode) String() string {
	switch m {
	case ModeAny:
		return "any"
	case ModeAll:
		return "all"
	default:
		return "one"
	}
}

// PermissionRule is the requirement checked by RequirePermission.
type PermissionRule struct {
	Mode        PermissionMode
	Permissions []entity.PermissionRequirement
}

// Permission builds a rule for a single "resource:action" permission. It panics on a malformed name.
func Permission(name string) PermissionRule {
	return PermissionRule{Mode: ModeOne, Permissions: []entity.PermissionRequirement{entity.MustParsePermission(name)}}
}

// AnyPermission builds a rule satisfied by any of the named permissions.
func AnyPermission(names ...string) PermissionRule {
	return PermissionRule{Mode: ModeAny, Permissions: mustParseAll(names)}
}

// AllPermissions builds a rule satisfied only by all of the named permissions.
func AllPermissions(names ...string) PermissionRule {
	return PermissionRule{Mode: ModeAll, Permissions: mustParseAll(names)}
}

func mustParseAll(names []string) []entity.PermissionRequirement {
	reqs := make([]entity.PermissionRequirement, 0, len(names))
	for _, name := range names {
		reqs = append(reqs, entity.MustParsePermission(name))
	}

	return reqs
}

// deniedMessage names the missing permissions so the client knows what to request.
func (r PermissionRule) deniedMessage() string {
	names := strings.Join(r.names(), ", ")
	switch r.Mode {
	case ModeAny:
		return "Missing required permission. Need one of: " + names
	case ModeAll:
		return "Missing required permissions. Need all of: " + names
	default:
		return "Missing required permission: " + names
	}
}

func (r PermissionRule) names() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.String())
	}

	return names
}

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	TokenService     service.TokenService
	RevokedTokenRepo repository.RevokedTokenRepository
	UserRepo         repository.UserRepository
	PermissionUC     usecase.PermissionUsecase
	AuditSink        service.AuditSink
	Logger           *slog.Logger
}

// AuthMiddleware authenticates bearer tokens and gates routes on superuser status or permissions.
type AuthMiddleware struct {
	tokenService service.TokenService
	revokedRepo  repository.RevokedTokenRepository
	userRepo     repository.UserRepository
	permissionUC usecase.PermissionUsecase
	audit        service.AuditSink
	logger       *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: params.TokenService,
		revokedRepo:  params.RevokedTokenRepo,
		userRepo:     params.UserRepo,
		permissionUC: params.PermissionUC,
		audit:        params.AuditSink,
		logger:       params.Logger,
	}
}

// Authenticate rejects the request unless it carries a valid, unrevoked access token
// of an active user in the token's tenant.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := m.resolve(c)
		if err != nil {
			return err
		}
		deliverycontext.SetPrincipal(c, principal)

		return next(c)
	}
}

// OptionalUser attaches the principal when the token is valid and otherwise continues anonymously.
func (m *AuthMiddleware) OptionalUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if principal, err := m.resolve(c); err == nil {
			deliverycontext.SetPrincipal(c, principal)
		} else if !errors.Is(err, domainerrors.ErrMissingToken) {
			m.log(c).Debug("Ignoring unusable bearer token", slog.Any("error", err))
		}

		return next(c)
	}
}

func (m *AuthMiddleware) resolve(c echo.Context) (*entity.Principal, error) {
	raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok {
		return nil, domainerrors.ErrMissingToken
	}

	claims := m.tokenService.DecodeToken(raw)
	if claims == nil {
		return nil, domainerrors.ErrInvalidToken
	}
	if claims.Type != entity.TokenTypeAccess {
		return nil, domainerrors.ErrInvalidTokenType
	}
	// Tokens without a jti could never be revoked.
	if claims.JTI == "" {
		return nil, domainerrors.ErrInvalidToken
	}

	ctx := c.Request().Context()
	revoked, err := m.revokedRepo.IsRevoked(ctx, claims.JTI)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check token revocation")
	}
	if revoked {
		return nil, domainerrors.ErrTokenRevoked
	}

	user, err := m.userRepo.FindByID(ctx, claims.TenantID, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to load authenticated user")
	}
	if !user.IsActive {
		return nil, domainerrors.ErrUserInactive
	}

	return &entity.Principal{User: user, Claims: claims}, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)

	return token, token != ""
}

// RequireSuperuser must run after Authenticate.
func (m *AuthMiddleware) RequireSuperuser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, ok := deliverycontext.GetPrincipal(c)
		if !ok {
			return domainerrors.ErrAuthRequired
		}
		if !principal.User.IsSuperuser {
			return domainerrors.ErrNotSuperuser
		}

		return next(c)
	}
}

// RequirePermission must run after Authenticate. Superusers pass every rule inside their tenant.
func (m *AuthMiddleware) RequirePermission(rule PermissionRule) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := deliverycontext.GetPrincipal(c)
			if !ok {
				return domainerrors.ErrAuthRequired
			}
			user := principal.User
			ctx := c.Request().Context()

			if user.IsSuperuser {
				m.log(c).Warn("Superuser bypassed permission check",
					slog.String("user_id", user.ID.String()),
					slog.Any("required_permissions", rule.names()),
				)
				m.recordRuleEvent(ctx, c, entity.AuditActionSuperuserBypass, user, rule)

				return next(c)
			}

			granted, err := m.evaluate(ctx, user, rule)
			if err != nil {
				return errors.Wrap(err, "failed to evaluate permissions")
			}
			if !granted {
				m.recordRuleEvent(ctx, c, entity.AuditActionPermissionDenied, user, rule)

				return domainerrors.NewPermissionDenied(rule.deniedMessage(), "")
			}

			return next(c)
		}
	}
}

func (m *AuthMiddleware) evaluate(ctx context.Context, user *entity.User, rule PermissionRule) (bool, error) {
	switch rule.Mode {
	case ModeAny:
		return m.permissionUC.HasAnyPermission(ctx, user.ID, user.TenantID, rule.Permissions)
	case ModeAll:
		return m.permissionUC.HasAllPermissions(ctx, user.ID, user.TenantID, rule.Permissions)
	default:
		if len(rule.Permissions) != 1 {
			return false, errors.Errorf("single permission rule with %d permissions", len(rule.Permissions))
		}
		p := rule.Permissions[0]

		return m.permissionUC.HasPermission(ctx, user.ID, user.TenantID, p.Resource, p.Action)
	}
}

func (m *AuthMiddleware) recordRuleEvent(ctx context.Context, c echo.Context, action entity.AuditAction, user *entity.User, rule PermissionRule) {
	event := entity.NewUserAuditEvent(action, user, ClientMeta(c))
	event.ResourceType = "route"
	event.ResourceID = c.Request().Method + " " + c.Path()
	event.Metadata = map[string]any{
		"required_permissions": rule.names(),
		"mode":                 rule.Mode.String(),
	}
	m.audit.Record(ctx, event)
}

func (m *AuthMiddleware) log(c echo.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger)
}
