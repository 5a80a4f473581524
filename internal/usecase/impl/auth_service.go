package impl

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tenantauth/internal/domain/entity"
	domainerrors "tenantauth/internal/domain/errors"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/domain/service"
	"tenantauth/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager    repository.TransactionManager
	userRepo     repository.UserRepository
	refreshRepo  repository.RefreshTokenRepository
	revokedRepo  repository.RevokedTokenRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	audit        service.AuditSink
	metrics      service.AuthMetrics
	issuer       tokenIssuer
	logger       *slog.Logger
	now          func() time.Time

	dummyHashOnce sync.Once
	dummyHash     string
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	RevokedTokenRepo repository.RevokedTokenRepository
	Hasher           service.PasswordHasher
	TokenService     service.TokenService
	AuditSink        service.AuditSink
	Metrics          service.AuthMetrics `optional:"true"`
	Logger           *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		txManager:    params.TxManager,
		userRepo:     params.UserRepo,
		refreshRepo:  params.RefreshTokenRepo,
		revokedRepo:  params.RevokedTokenRepo,
		hasher:       params.Hasher,
		tokenService: params.TokenService,
		audit:        params.AuditSink,
		metrics:      authMetricsOrNoop(params.Metrics),
		issuer:       newTokenIssuer(params.TokenService),
		logger:       params.Logger,
		now:          time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return requestLogger(ctx, srv.logger)
}

// Register opens a new tenant whose first user is its superuser, and signs that user in.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (out *usecase.RegisterOutput, err error) {
	defer func() { srv.metrics.AuthEvent("register", outcome(err)) }()

	email := normalizeEmail(input.Email)
	srv.log(ctx).Info("Starting registration", slog.String("email", email))

	if err := srv.hasher.ValidatePasswordStrength(input.Password); err != nil {
		srv.log(ctx).Warn("Password validation failed during registration", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "password does not meet security requirements")
	}

	// The tenant does not exist yet, so uniqueness is checked across all tenants.
	_, err = srv.userRepo.FindByEmailUnscoped(ctx, email)
	if err == nil {
		srv.log(ctx).Warn("Registration rejected for existing email", slog.String("email", email))

		return nil, errors.Wrap(domainerrors.ErrRegistrationFailed, "email already registered")
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.Wrap(err, "failed to check existing email")
	}

	// bcrypt is CPU-bound, keep it outside the transaction.
	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password during registration")
	}

	out = &usecase.RegisterOutput{}
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		// Concurrent registrations of one email would otherwise each open a tenant.
		userRepo := repoFactory.UserRepo()
		if err := userRepo.LockEmail(ctx, email); err != nil {
			return err
		}
		if _, err := userRepo.FindByEmailUnscoped(ctx, email); err == nil {
			return errors.Wrap(domainerrors.ErrRegistrationFailed, "email already registered")
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(err, "failed to check existing email")
		}

		tenant, err := createTenant(ctx, repoFactory.TenantRepo(), input.TenantName, input.TenantName)
		if err != nil {
			return err
		}

		user := &entity.User{
			TenantID:     tenant.ID,
			Email:        email,
			PasswordHash: &passwordHash,
			FullName:     strings.TrimSpace(input.FullName),
			IsActive:     true,
			IsSuperuser:  true,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrUserEmailTaken) {
				return errors.Wrap(domainerrors.ErrRegistrationFailed, "email already registered")
			}

			return errors.Wrap(err, "failed to create user during registration")
		}

		tokens, err := srv.issuer.issue(ctx, repoFactory.RefreshTokenRepo(), user, input.Client)
		if err != nil {
			return err
		}

		out.Tenant, out.User, out.Tokens = tenant, user, tokens

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to execute registration transaction", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute registration transaction")
	}

	srv.audit.Record(ctx, entity.NewUserAuditEvent(entity.AuditActionRegister, out.User, input.Client))
	srv.log(ctx).Info("Registration completed",
		slog.String("user_id", out.User.ID.String()),
		slog.String("tenant_id", out.Tenant.ID.String()),
	)

	return out, nil
}

// Login authenticates by email and password. Unknown email and wrong password are indistinguishable.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (out *usecase.LoginOutput, err error) {
	defer func() { srv.metrics.AuthEvent("login", outcome(err)) }()

	email := normalizeEmail(input.Email)
	srv.log(ctx).Debug("Starting user login", slog.String("email", email))

	user, err := srv.userRepo.FindByEmailUnscoped(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.spendPasswordCheck(input.Password)
			srv.recordLoginFailure(ctx, nil, email, "unknown_email", input.Client)

			return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
		}

		return nil, errors.Wrap(err, "failed to load user for login")
	}

	if !user.HasPassword() {
		srv.spendPasswordCheck(input.Password)
		srv.recordLoginFailure(ctx, user, email, "bad_password", input.Client)

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}
	if !srv.hasher.Check(input.Password, *user.PasswordHash) {
		srv.recordLoginFailure(ctx, user, email, "bad_password", input.Client)

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	if !user.IsActive {
		srv.recordLoginFailure(ctx, user, email, "inactive", input.Client)

		return nil, errors.Wrap(domainerrors.ErrAccountInactive, "login failed")
	}

	// A single insert needs no explicit transaction.
	tokens, err := srv.issuer.issue(ctx, srv.refreshRepo, user, input.Client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue tokens during login")
	}

	srv.audit.Record(ctx, entity.NewUserAuditEvent(entity.AuditActionLoginSuccess, user, input.Client))
	srv.log(ctx).Debug("User logged in successfully", slog.String("user_id", user.ID.String()))

	return &usecase.LoginOutput{User: user, Tokens: tokens}, nil
}

// spendPasswordCheck runs one comparison against a throwaway hash so that logins for unknown
// or password-less accounts take as long as a wrong password.
func (srv *authService) spendPasswordCheck(password string) {
	srv.dummyHashOnce.Do(func() {
		hash, err := srv.hasher.Hash(uuid.NewString())
		if err != nil {
			srv.logger.Warn("Failed to prepare login timing hash", slog.Any("error", err))

			return
		}
		srv.dummyHash = hash
	})
	srv.hasher.Check(password, srv.dummyHash)
}

func (srv *authService) recordLoginFailure(ctx context.Context, user *entity.User, email, reason string, client entity.ClientMeta) {
	srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.String("reason", reason))

	event := entity.NewUserAuditEvent(entity.AuditActionLoginFailed, user, client)
	event.Metadata = map[string]any{"email": email, "reason": reason}
	srv.audit.Record(ctx, event)
}

// Refresh consumes the presented refresh token and issues a new pair.
// Find-and-revoke is a single conditional update, so concurrent callers
// presenting the same token cannot both succeed.
func (srv *authService) Refresh(ctx context.Context, input *usecase.RefreshInput) (pair *entity.TokenPair, err error) {
	defer func() { srv.metrics.AuthEvent("refresh", outcome(err)) }()

	if input.RefreshToken == "" {
		return nil, errors.Wrap(domainerrors.ErrInvalidRefreshToken, "empty refresh token")
	}
	tokenHash := srv.tokenService.HashToken(input.RefreshToken)

	var user *entity.User
	// rejectErr is returned after commit so the revocation of a rejected token persists.
	var rejectErr error

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		record, err := repoFactory.RefreshTokenRepo().RevokeActiveByHash(ctx, tokenHash)
		if err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return errors.Wrap(domainerrors.ErrInvalidRefreshToken, "refresh token not found or revoked")
			}

			return errors.Wrap(err, "failed to revoke refresh token")
		}

		if record.IsExpired(srv.now()) {
			rejectErr = errors.Wrap(domainerrors.ErrRefreshTokenExpired, "refresh token expired")

			return nil
		}

		// No tenant context on this path, it is derived from the stored session.
		user, err = repoFactory.UserRepo().FindByIDUnscoped(ctx, record.UserID)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(err, "failed to load refresh token owner")
		}
		if user == nil || !user.IsActive {
			rejectErr = errors.Wrap(domainerrors.ErrUserInvalid, "refresh token owner missing or inactive")

			return nil
		}

		pair, err = srv.issuer.issue(ctx, repoFactory.RefreshTokenRepo(), user, input.Client)

		return err
	})
	if err != nil {
		srv.log(ctx).Warn("Refresh failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute refresh transaction")
	}
	if rejectErr != nil {
		srv.log(ctx).Warn("Refresh rejected, token revoked", slog.Any("error", rejectErr))

		return nil, rejectErr
	}

	srv.audit.Record(ctx, entity.NewUserAuditEvent(entity.AuditActionRefresh, user, input.Client))

	return pair, nil
}

// Logout revokes one session. It reveals nothing about whether the token existed.
func (srv *authService) Logout(ctx context.Context, refreshToken string, client entity.ClientMeta) (err error) {
	defer func() { srv.metrics.AuthEvent("logout", outcome(err)) }()

	if refreshToken == "" {
		return nil
	}

	record, err := srv.refreshRepo.RevokeActiveByHash(ctx, srv.tokenService.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			srv.log(ctx).Debug("Logout with unknown or already revoked refresh token")

			return nil
		}

		return errors.Wrap(err, "failed to revoke refresh token")
	}

	userID := record.UserID
	srv.audit.Record(ctx, entity.AuditEvent{
		UserID:       &userID,
		Action:       entity.AuditActionLogout,
		ResourceType: "refresh_token",
		ResourceID:   record.ID.String(),
		Client:       client,
	})
	srv.log(ctx).Info("Successfully logged out", slog.String("user_id", userID.String()))

	return nil
}

// LogoutAll revokes every active session of the user.
func (srv *authService) LogoutAll(ctx context.Context, user *entity.User, client entity.ClientMeta) (revoked int64, err error) {
	defer func() { srv.metrics.AuthEvent("logout_all", outcome(err)) }()

	revoked, err = srv.refreshRepo.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to revoke user sessions")
	}

	event := entity.NewUserAuditEvent(entity.AuditActionLogoutAll, user, client)
	event.Metadata = map[string]any{"revoked": revoked}
	srv.audit.Record(ctx, event)
	srv.log(ctx).Info("Revoked all sessions", slog.String("user_id", user.ID.String()), slog.Int64("revoked", revoked))

	return revoked, nil
}

// RevokeAccessToken blacklists the token's jti until its own expiry.
func (srv *authService) RevokeAccessToken(ctx context.Context, claims *entity.TokenClaims) error {
	if claims == nil || claims.JTI == "" {
		return nil
	}

	if err := srv.revokedRepo.Revoke(ctx, claims.JTI, claims.ExpiresAt); err != nil {
		return errors.Wrap(err, "failed to revoke access token")
	}
	srv.log(ctx).Debug("Access token revoked", slog.String("jti", claims.JTI))

	return nil
}

// RevokeUserSessions ends every session of a user in the actor's tenant.
// Users of other tenants are reported as not found.
func (srv *authService) RevokeUserSessions(ctx context.Context, actor *entity.User, userID uuid.UUID, client entity.ClientMeta) (int64, error) {
	if actor == nil || !actor.IsSuperuser {
		return 0, errors.Wrap(domainerrors.ErrNotSuperuser, "revoke user sessions")
	}

	target, err := srv.userRepo.FindByID(ctx, actor.TenantID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, errors.Wrap(domainerrors.ErrNotFound.WithMessage("User not found"), "revoke user sessions")
		}

		return 0, errors.Wrap(err, "failed to load target user")
	}

	revoked, err := srv.refreshRepo.RevokeAllForUser(ctx, target.ID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to revoke user sessions")
	}

	event := entity.NewUserAuditEvent(entity.AuditActionSessionsRevoked, actor, client)
	event.ResourceID = target.ID.String()
	event.Metadata = map[string]any{"revoked": revoked}
	srv.audit.Record(ctx, event)
	srv.log(ctx).Info("Revoked sessions of user",
		slog.String("actor_id", actor.ID.String()),
		slog.String("user_id", target.ID.String()),
		slog.Int64("revoked", revoked),
	)

	return revoked, nil
}
