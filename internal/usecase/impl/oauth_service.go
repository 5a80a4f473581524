package impl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tenantauth/config"
	"tenantauth/internal/domain/entity"
	domainerrors "tenantauth/internal/domain/errors"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/domain/service"
	"tenantauth/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// oauthService implements the OAuthUsecase interface.
type oauthService struct {
	txManager       repository.TransactionManager
	stateStore      service.OAuthStateStore
	providers       service.OAuthProviderRegistry
	audit           service.AuditSink
	metrics         service.AuthMetrics
	issuer          tokenIssuer
	stateTTL        time.Duration
	providerTimeout time.Duration
	logger          *slog.Logger
}

// OAuthServiceParams holds dependencies for OAuthService, injected by Fx.
type OAuthServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	StateStore   service.OAuthStateStore
	Providers    service.OAuthProviderRegistry
	TokenService service.TokenService
	AuditSink    service.AuditSink
	Metrics      service.AuthMetrics `optional:"true"`
	Config       *config.Config
	Logger       *slog.Logger
}

// NewOAuthService is the constructor for oauthService.
func NewOAuthService(params OAuthServiceParams) usecase.OAuthUsecase {
	return &oauthService{
		txManager:       params.TxManager,
		stateStore:      params.StateStore,
		providers:       params.Providers,
		audit:           params.AuditSink,
		metrics:         authMetricsOrNoop(params.Metrics),
		issuer:          newTokenIssuer(params.TokenService),
		stateTTL:        params.Config.Auth.OAuthStateTTL,
		providerTimeout: params.Config.OAuth.ProviderTimeout,
		logger:          params.Logger,
	}
}

func (srv *oauthService) log(ctx context.Context) *slog.Logger {
	return requestLogger(ctx, srv.logger)
}

func (srv *oauthService) ListProviders(context.Context) []string {
	return srv.providers.Configured()
}

// Authorize binds a fresh one-time state to the provider and redirect URI and returns the consent URL.
func (srv *oauthService) Authorize(ctx context.Context, providerName, redirectURI string) (*usecase.AuthorizeOutput, error) {
	provider, ok := srv.providers.Provider(providerName)
	if !ok {
		return nil, errors.Wrapf(domainerrors.ErrOAuthProviderNotFound, "provider %q", providerName)
	}

	if redirectURI == "" {
		redirectURI = provider.DefaultRedirectURI()
	}

	state, err := generateState()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate oauth state")
	}

	data := entity.OAuthState{Provider: provider.Name(), RedirectURI: redirectURI}
	if err := srv.stateStore.Store(ctx, state, data, srv.stateTTL); err != nil {
		return nil, errors.Wrap(err, "failed to store oauth state")
	}

	srv.log(ctx).Debug("OAuth authorization started", slog.String("provider", provider.Name()))

	return &usecase.AuthorizeOutput{
		URL:   provider.AuthorizationURL(state, redirectURI),
		State: state,
	}, nil
}

// Callback completes the authorization code flow. The state is consumed before anything
// else can fail, so it is never reusable.
func (srv *oauthService) Callback(ctx context.Context, input *usecase.CallbackInput) (out *usecase.LoginOutput, err error) {
	defer func() { srv.metrics.AuthEvent("oauth_callback", outcome(err)) }()

	if input.Error != "" {
		srv.log(ctx).Warn("OAuth provider returned an error",
			slog.String("provider", input.Provider),
			slog.String("error", input.Error),
			slog.String("error_description", input.ErrorDescription),
		)
		details := input.Error
		if input.ErrorDescription != "" {
			details += ": " + input.ErrorDescription
		}

		return nil, errors.Wrap(domainerrors.ErrOAuthProviderError.WithDetails(details), "oauth callback")
	}

	if input.Code == "" {
		return nil, errors.Wrap(domainerrors.ErrOAuthMissingCode, "oauth callback")
	}

	state, err := srv.consumeState(ctx, input.State)
	if err != nil {
		return nil, err
	}

	if state.Provider != input.Provider {
		srv.log(ctx).Warn("OAuth state replayed against another provider",
			slog.String("state_provider", state.Provider),
			slog.String("provider", input.Provider),
		)

		return nil, errors.Wrap(domainerrors.ErrOAuthStateMismatch, "oauth callback")
	}

	provider, ok := srv.providers.Provider(input.Provider)
	if !ok {
		return nil, errors.Wrapf(domainerrors.ErrOAuthProviderNotFound, "provider %q", input.Provider)
	}

	// Talk to the provider before any transaction is opened.
	fetchCtx, cancel := context.WithTimeout(ctx, srv.providerTimeout)
	defer cancel()

	info, err := provider.FetchUserInfo(fetchCtx, input.Code, state.RedirectURI)
	if err != nil {
		srv.log(ctx).Warn("OAuth code exchange failed", slog.String("provider", input.Provider), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrOAuthFailed, "oauth callback")
	}

	return srv.signIn(ctx, provider.Name(), info, input.Client)
}

func (srv *oauthService) consumeState(ctx context.Context, state string) (*entity.OAuthState, error) {
	if state == "" {
		return nil, errors.Wrap(domainerrors.ErrOAuthInvalidState, "missing state")
	}

	data, err := srv.stateStore.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, service.ErrOAuthStateNotFound) {
			srv.log(ctx).Warn("OAuth state unknown, expired or already used")

			return nil, errors.Wrap(domainerrors.ErrOAuthInvalidState, "consume state")
		}

		return nil, errors.Wrap(err, "failed to consume oauth state")
	}

	return data, nil
}

// SignInWithIDToken signs in with an ID token the client obtained from the provider itself.
func (srv *oauthService) SignInWithIDToken(ctx context.Context, input *usecase.IDTokenInput) (out *usecase.LoginOutput, err error) {
	defer func() { srv.metrics.AuthEvent("oauth_id_token", outcome(err)) }()

	verifier, ok := srv.providers.Verifier(input.Provider)
	if !ok {
		return nil, errors.Wrapf(domainerrors.ErrOAuthProviderNotFound, "provider %q", input.Provider)
	}

	if input.IDToken == "" {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed.WithDetails("id_token is required"), "id token sign-in")
	}

	verifyCtx, cancel := context.WithTimeout(ctx, srv.providerTimeout)
	defer cancel()

	info, err := verifier.Verify(verifyCtx, input.IDToken)
	if err != nil {
		srv.log(ctx).Warn("ID token verification failed", slog.String("provider", input.Provider), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrOAuthFailed, "id token sign-in")
	}

	return srv.signIn(ctx, verifier.Name(), info, input.Client)
}

// signIn resolves the local account and issues tokens in one transaction.
func (srv *oauthService) signIn(ctx context.Context, provider string, info *entity.OAuthUserInfo, client entity.ClientMeta) (*usecase.LoginOutput, error) {
	out := &usecase.LoginOutput{}
	var created bool

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		user, isNew, err := srv.resolveUser(ctx, repoFactory, provider, info)
		if err != nil {
			return err
		}

		if !user.IsActive {
			return errors.Wrap(domainerrors.ErrOAuthAccountInactive, "oauth sign-in")
		}

		tokens, err := srv.issuer.issue(ctx, repoFactory.RefreshTokenRepo(), user, client)
		if err != nil {
			return err
		}

		out.User, out.Tokens, created = user, tokens, isNew

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("OAuth sign-in failed", slog.String("provider", provider), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute oauth sign-in transaction")
	}

	event := entity.NewUserAuditEvent(entity.AuditActionOAuthLogin, out.User, client)
	event.Metadata = map[string]any{"provider": provider, "created": created}
	srv.audit.Record(ctx, event)

	return out, nil
}

// resolveUser matches by provider identity, then by email (linking the identity), and
// otherwise creates a new tenant with the user as its superuser. The order matters:
// the provider identity is the stronger signal.
func (srv *oauthService) resolveUser(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	provider string,
	info *entity.OAuthUserInfo,
) (*entity.User, bool, error) {
	userRepo := repoFactory.UserRepo()

	user, err := userRepo.FindByOAuthUnscoped(ctx, provider, info.ProviderUserID)
	if err == nil {
		srv.log(ctx).Debug("Found existing OAuth user", slog.String("user_id", user.ID.String()), slog.String("provider", provider))

		return user, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, errors.Wrap(err, "failed to find user by oauth identity")
	}

	email := normalizeEmail(info.Email)
	user, err = userRepo.FindByEmailUnscoped(ctx, email)
	switch {
	case err == nil:
		if err := srv.linkIdentity(ctx, userRepo, user, provider, info); err != nil {
			return nil, false, err
		}

		return user, false, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, false, errors.Wrap(err, "failed to find user by email")
	}

	user, err = srv.createUser(ctx, repoFactory, provider, email, info)
	if err != nil {
		return nil, false, err
	}

	return user, true, nil
}

func (srv *oauthService) linkIdentity(
	ctx context.Context,
	userRepo repository.UserRepository,
	user *entity.User,
	provider string,
	info *entity.OAuthUserInfo,
) error {
	if user.OAuthProvider != nil && *user.OAuthProvider == provider && user.OAuthID != nil && *user.OAuthID != info.ProviderUserID {
		return errors.Wrapf(domainerrors.ErrOAuthExists, "user %s already linked at %s", user.ID, provider)
	}

	// An unverified address must never take over an existing account.
	if !info.EmailVerified {
		return errors.Wrap(domainerrors.ErrEmailExists, "provider email is not verified")
	}

	if err := userRepo.LinkOAuth(ctx, user.ID, provider, info.ProviderUserID); err != nil {
		return errors.Wrap(err, "failed to link oauth identity")
	}
	user.LinkOAuth(provider, info.ProviderUserID)

	srv.log(ctx).Info("Linked OAuth identity to existing user", slog.String("user_id", user.ID.String()), slog.String("provider", provider))

	return nil
}

func (srv *oauthService) createUser(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	provider, email string,
	info *entity.OAuthUserInfo,
) (*entity.User, error) {
	name := strings.TrimSpace(info.Name)

	tenant, err := createTenant(ctx, repoFactory.TenantRepo(), fmt.Sprintf(oauthWorkspaceName, name), name)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		TenantID:    tenant.ID,
		Email:       email,
		FullName:    name,
		IsActive:    true,
		IsSuperuser: true,
	}
	user.LinkOAuth(provider, info.ProviderUserID)

	if err := repoFactory.UserRepo().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserEmailTaken) {
			return nil, errors.Wrap(domainerrors.ErrEmailExists, "oauth account creation raced")
		}

		return nil, errors.Wrap(err, "failed to create oauth user")
	}

	srv.log(ctx).Info("Created user from OAuth identity",
		slog.String("user_id", user.ID.String()),
		slog.String("tenant_id", tenant.ID.String()),
		slog.String("provider", provider),
	)

	return user, nil
}
