package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"tenantauth/config"
	"tenantauth/internal/domain/entity"
	"tenantauth/internal/domain/service"
	"tenantauth/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// minSecretLength is the shortest HMAC secret accepted at startup.
	minSecretLength = 32

	// placeholderSecret ships in the example config and must never reach a running server.
	placeholderSecret = "change-me-in-production"

	// randomTokenBytes is the entropy of jti values and refresh tokens.
	randomTokenBytes = 32
)

var reservedClaims = map[string]struct{}{
	"sub":       {},
	"tenant_id": {},
	"iat":       {},
	"exp":       {},
	"type":      {},
	"jti":       {},
}

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	secret     []byte        // HMAC key for signing access tokens.
	accessTTL  time.Duration // Default time-to-live for access tokens.
	refreshTTL time.Duration // Time-to-live for refresh tokens.
	now        func() time.Time
}

// NewJWTService is the constructor for jwtService.
// It refuses to start with a missing, short or placeholder secret.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	secret := cfg.SecretKey.Access
	switch {
	case secret == "":
		return nil, errors.New("jwt secret must be provided")
	case secret == placeholderSecret:
		return nil, errors.New("jwt secret must be changed from the example value")
	case len(secret) < minSecretLength:
		return nil, errors.Errorf("jwt secret must be at least %d characters", minSecretLength)
	}

	accessTTL, refreshTTL := 15*time.Minute, 7*24*time.Hour
	if cfg.Auth != nil {
		if cfg.Auth.AccessTokenTTL > 0 {
			accessTTL = cfg.Auth.AccessTokenTTL
		}
		if cfg.Auth.RefreshTokenTTL > 0 {
			refreshTTL = cfg.Auth.RefreshTokenTTL
		}
	}

	return &jwtService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// CreateAccessToken signs an HS256 access token carrying the user, tenant and a unique jti.
func (s *jwtService) CreateAccessToken(userID, tenantID uuid.UUID, opts ...service.AccessTokenOption) (string, error) {
	options := service.AccessTokenOptions{TTL: s.accessTTL}
	for _, opt := range opts {
		opt(&options)
	}
	if options.TTL == 0 {
		options.TTL = s.accessTTL
	}

	jti, err := randomToken()
	if err != nil {
		return "", errors.Wrap(err, "failed to generate jti")
	}

	now := s.now()
	claims := jwt.MapClaims{}
	for key, value := range options.Extra {
		if _, reserved := reservedClaims[key]; reserved {
			continue
		}
		claims[key] = value
	}
	claims["sub"] = userID.String()             // Subject (who the token is for)
	claims["tenant_id"] = tenantID.String()     // Tenant the token is scoped to
	claims["iat"] = now.Unix()                  // Issued At
	claims["exp"] = now.Add(options.TTL).Unix() // Expiration Time
	claims["type"] = entity.TokenTypeAccess     // Type of token
	claims["jti"] = jti                         // Unique id used for revocation

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}

	return signed, nil
}

// DecodeToken verifies algorithm, signature and expiry. Any failure yields nil.
func (s *jwtService) DecodeToken(tokenString string) *entity.TokenClaims {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil
	}

	return claimsFromMap(claims)
}

// NewRefreshToken returns an opaque, URL-safe token. It is never a JWT.
func (s *jwtService) NewRefreshToken() (string, error) {
	raw, err := randomToken()
	if err != nil {
		return "", errors.Wrap(err, "failed to generate refresh token")
	}

	return raw, nil
}

// HashToken returns the hex SHA-256 digest stored in place of the raw refresh token.
func (s *jwtService) HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return hex.EncodeToString(sum[:])
}

func (s *jwtService) AccessTokenTTL() time.Duration {
	return s.accessTTL
}

func (s *jwtService) RefreshTokenTTL() time.Duration {
	return s.refreshTTL
}

func claimsFromMap(claims jwt.MapClaims) *entity.TokenClaims {
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil
	}

	tenant, _ := claims["tenant_id"].(string)
	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}

	result := &entity.TokenClaims{
		UserID:    userID,
		TenantID:  tenantID,
		Type:      entity.TokenTypeAccess,
		ExpiresAt: exp.Time,
	}
	if tokenType, ok := claims["type"].(string); ok && tokenType != "" {
		result.Type = tokenType
	}
	if jti, ok := claims["jti"].(string); ok {
		result.JTI = jti
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		result.IssuedAt = iat.Time
	}

	for key, value := range claims {
		if _, reserved := reservedClaims[key]; reserved {
			continue
		}
		if result.Extra == nil {
			result.Extra = make(map[string]any)
		}
		result.Extra[key] = value
	}

	return result
}

func randomToken() (string, error) {
	buf := make([]byte, randomTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.WithStack(err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
