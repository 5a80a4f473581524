// Package google implements the Google OAuth2 provider and ID token verifier.
package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"tenantauth/config"
	"tenantauth/internal/domain/entity"
	"tenantauth/internal/domain/service"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	googleOAuthURL    = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	defaultTimeout = 10 * time.Second

	// maxUserInfoBytes bounds the user info response read into memory.
	maxUserInfoBytes = 1 << 20
)

var defaultScopes = []string{"openid", "email", "profile"}

// Provider runs the authorization code flow against Google.
type Provider struct {
	oauth2Config *oauth2.Config
	userInfoURL  string
	httpClient   *http.Client
}

// Option customizes a Provider.
type Option func(*Provider)

// WithEndpoints points the provider at alternative URLs.
func WithEndpoints(authURL, tokenURL, userInfoURL string) Option {
	return func(p *Provider) {
		p.oauth2Config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
		p.userInfoURL = userInfoURL
	}
}

// WithHTTPClient replaces the client used for the code exchange and user info call.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// NewProvider builds the provider from the oauth.google config section.
func NewProvider(cfg *config.Config, opts ...Option) *Provider {
	var google config.GoogleOAuthConfig
	timeout := defaultTimeout
	if cfg.OAuth != nil {
		if cfg.OAuth.Google != nil {
			google = *cfg.OAuth.Google
		}
		if cfg.OAuth.ProviderTimeout > 0 {
			timeout = cfg.OAuth.ProviderTimeout
		}
	}

	scopes := google.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	p := &Provider{
		oauth2Config: &oauth2.Config{
			ClientID:     google.ClientID,
			ClientSecret: google.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  googleOAuthURL,
				TokenURL: googleTokenURL,
			},
			RedirectURL: google.RedirectURL,
			Scopes:      scopes,
		},
		userInfoURL: googleUserInfoURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// NewOAuthProvider exposes the provider through the domain interface.
func NewOAuthProvider(cfg *config.Config) service.OAuthProvider {
	return NewProvider(cfg)
}

func (p *Provider) Name() string {
	return entity.ProviderGoogle
}

// IsConfigured requires both client id and secret.
func (p *Provider) IsConfigured() bool {
	return p.oauth2Config.ClientID != "" && p.oauth2Config.ClientSecret != ""
}

func (p *Provider) DefaultRedirectURI() string {
	return p.oauth2Config.RedirectURL
}

// AuthorizationURL builds the consent URL. Offline access and account selection are always requested.
func (p *Provider) AuthorizationURL(state, redirectURI string) string {
	return p.configFor(redirectURI).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// FetchUserInfo exchanges the code and loads the Google profile of the signed in user.
func (p *Provider) FetchUserInfo(ctx context.Context, code, redirectURI string) (*entity.OAuthUserInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	oauthConfig := p.configFor(redirectURI)

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "failed to exchange code for token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user info request")
	}

	resp, err := oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user info")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return nil, errors.Errorf("user info request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var googleUser struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoBytes)).Decode(&googleUser); err != nil {
		return nil, errors.Wrap(err, "failed to decode user info response")
	}

	return normalizeUserInfo(googleUser.ID, googleUser.Email, googleUser.Name, googleUser.Picture, googleUser.VerifiedEmail)
}

func (p *Provider) configFor(redirectURI string) *oauth2.Config {
	if redirectURI == "" || redirectURI == p.oauth2Config.RedirectURL {
		return p.oauth2Config
	}
	cfg := *p.oauth2Config
	cfg.RedirectURL = redirectURI

	return &cfg
}

// normalizeUserInfo lowercases the email and falls back to its local part for the display name.
func normalizeUserInfo(id, email, name, picture string, verified bool) (*entity.OAuthUserInfo, error) {
	if id == "" {
		return nil, errors.New("missing user id in provider response")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("missing email in provider response")
	}
	if strings.TrimSpace(name) == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	return &entity.OAuthUserInfo{
		ProviderUserID: id,
		Email:          email,
		Name:           name,
		Picture:        picture,
		EmailVerified:  verified,
	}, nil
}
