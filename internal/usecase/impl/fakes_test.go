package impl

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"tenantauth/config"
	"tenantauth/internal/domain/entity"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/domain/service"
	"tenantauth/internal/infra/auth"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	return &config.Config{
		SecretKey: config.SecretKeyConfig{Access: testSecret},
		Auth: &config.AuthConfig{
			BcryptCost:      bcrypt.MinCost,
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
			OAuthStateTTL:   10 * time.Minute,
		},
		OAuth: &config.OAuthConfig{ProviderTimeout: time.Second},
	}
}

func newTestTokenService(t *testing.T) service.TokenService {
	t.Helper()

	svc, err := auth.NewJWTService(newTestConfig())
	require.NoError(t, err)

	return svc
}

// memStore is an in-memory stand-in for every repository. Each method holds
// the store lock, so conditional updates are atomic like their SQL counterparts.
type memStore struct {
	mu sync.Mutex
	// txMu runs transactions one at a time, standing in for row and advisory locks.
	txMu    sync.Mutex
	tenants map[uuid.UUID]entity.Tenant
	users   map[uuid.UUID]entity.User
	refresh map[uuid.UUID]entity.RefreshToken
	revoked map[string]time.Time
	// roles are keyed by user and carry their own tenant
	roles map[uuid.UUID][]*entity.Role

	refreshDeleteErr error
	revokedDeleteErr error
}

func newMemStore() *memStore {
	return &memStore{
		tenants: map[uuid.UUID]entity.Tenant{},
		users:   map[uuid.UUID]entity.User{},
		refresh: map[uuid.UUID]entity.RefreshToken{},
		revoked: map[string]time.Time{},
		roles:   map[uuid.UUID][]*entity.Role{},
	}
}

func (s *memStore) txManager() repository.TransactionManager { return &memTxManager{store: s} }
func (s *memStore) tenantRepo() repository.TenantRepository  { return &memTenantRepo{store: s} }
func (s *memStore) userRepo() repository.UserRepository      { return &memUserRepo{store: s} }
func (s *memStore) refreshRepo() repository.RefreshTokenRepository {
	return &memRefreshRepo{store: s}
}
func (s *memStore) revokedRepo() repository.RevokedTokenRepository {
	return &memRevokedRepo{store: s}
}
func (s *memStore) roleRepo() repository.RoleRepository { return &memRoleRepo{store: s} }

func (s *memStore) addUser(u entity.User) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID] = u

	return &u
}

func (s *memStore) setUserActive(id uuid.UUID, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.IsActive = active
	s.users[id] = u
}

func (s *memStore) refreshTokens() []entity.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.RefreshToken, 0, len(s.refresh))
	for _, t := range s.refresh {
		out = append(out, t)
	}

	return out
}

func (s *memStore) tenantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tenants)
}

func (s *memStore) tenant(id uuid.UUID) entity.Tenant {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tenants[id]
}

type memTxManager struct{ store *memStore }

func (tm *memTxManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	tm.store.txMu.Lock()
	defer tm.store.txMu.Unlock()

	return fn(&memFactory{store: tm.store})
}

type memFactory struct{ store *memStore }

func (f *memFactory) TenantRepo() repository.TenantRepository { return f.store.tenantRepo() }
func (f *memFactory) UserRepo() repository.UserRepository     { return f.store.userRepo() }
func (f *memFactory) RefreshTokenRepo() repository.RefreshTokenRepository {
	return f.store.refreshRepo()
}
func (f *memFactory) RevokedTokenRepo() repository.RevokedTokenRepository {
	return f.store.revokedRepo()
}
func (f *memFactory) RoleRepo() repository.RoleRepository { return f.store.roleRepo() }

type memTenantRepo struct{ store *memStore }

func (r *memTenantRepo) Create(_ context.Context, tenant *entity.Tenant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.tenants {
		if t.Slug == tenant.Slug {
			return repository.ErrTenantSlugTaken
		}
	}
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	r.store.tenants[tenant.ID] = *tenant

	return nil
}

func (r *memTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Tenant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tenants[id]
	if !ok {
		return nil, repository.ErrTenantNotFound
	}

	return &t, nil
}

func (r *memTenantRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.tenants {
		if t.Slug == slug {
			return true, nil
		}
	}

	return false, nil
}

type memUserRepo struct{ store *memStore }

func (r *memUserRepo) find(match func(entity.User) bool) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var found []entity.User
	for _, u := range r.store.users {
		if match(u) {
			found = append(found, u)
		}
	}
	if len(found) == 0 {
		return nil, repository.ErrUserNotFound
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.Before(found[j].CreatedAt) })

	return &found[0], nil
}

func (r *memUserRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id && u.TenantID == tenantID })
}

func (r *memUserRepo) FindByEmail(_ context.Context, tenantID uuid.UUID, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Email == email && u.TenantID == tenantID })
}

func (r *memUserRepo) FindByOAuth(_ context.Context, tenantID uuid.UUID, provider, oauthID string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.TenantID == tenantID && hasIdentity(u, provider, oauthID) })
}

func (r *memUserRepo) FindByIDUnscoped(_ context.Context, id uuid.UUID) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id })
}

func (r *memUserRepo) FindByEmailUnscoped(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Email == email })
}

func (r *memUserRepo) FindByOAuthUnscoped(_ context.Context, provider, oauthID string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return hasIdentity(u, provider, oauthID) })
}

func (r *memUserRepo) Create(_ context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.TenantID == user.TenantID && u.Email == user.Email {
			return repository.ErrUserEmailTaken
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	r.store.users[user.ID] = *user

	return nil
}

func (r *memUserRepo) LinkOAuth(_ context.Context, userID uuid.UUID, provider, oauthID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.LinkOAuth(provider, oauthID)
	r.store.users[userID] = u

	return nil
}

func (r *memUserRepo) ListByTenant(_ context.Context, tenantID uuid.UUID, offset, limit int) ([]*entity.User, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var found []*entity.User
	for _, u := range r.store.users {
		if u.TenantID == tenantID {
			found = append(found, &u)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.After(found[j].CreatedAt) })
	total := int64(len(found))
	if offset >= len(found) {
		return []*entity.User{}, total, nil
	}

	return found[offset:min(offset+limit, len(found))], total, nil
}

func (r *memUserRepo) LockEmail(context.Context, string) error { return nil }

func (r *memUserRepo) Update(_ context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.users[user.ID]
	if !ok || existing.TenantID != user.TenantID {
		return repository.ErrUserNotFound
	}
	for _, u := range r.store.users {
		if u.ID != user.ID && u.TenantID == user.TenantID && u.Email == user.Email {
			return repository.ErrUserEmailTaken
		}
	}
	r.store.users[user.ID] = *user

	return nil
}

func hasIdentity(u entity.User, provider, oauthID string) bool {
	return u.OAuthProvider != nil && *u.OAuthProvider == provider && u.OAuthID != nil && *u.OAuthID == oauthID
}

type memRefreshRepo struct{ store *memStore }

func (r *memRefreshRepo) Create(_ context.Context, token *entity.RefreshToken) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()
	r.store.refresh[token.ID] = *token

	return nil
}

func (r *memRefreshRepo) FindActiveByHash(_ context.Context, tokenHash string) (*entity.RefreshToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.refresh {
		if t.TokenHash == tokenHash && !t.Revoked {
			return &t, nil
		}
	}

	return nil, repository.ErrRefreshTokenNotFound
}

func (r *memRefreshRepo) Revoke(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if t, ok := r.store.refresh[id]; ok {
		t.Revoked = true
		r.store.refresh[id] = t
	}

	return nil
}

func (r *memRefreshRepo) RevokeActiveByHash(_ context.Context, tokenHash string) (*entity.RefreshToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, t := range r.store.refresh {
		if t.TokenHash == tokenHash && !t.Revoked {
			t.Revoked = true
			r.store.refresh[id] = t

			return &t, nil
		}
	}

	return nil, repository.ErrRefreshTokenNotFound
}

func (r *memRefreshRepo) RevokeAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for id, t := range r.store.refresh {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			r.store.refresh[id] = t
			n++
		}
	}

	return n, nil
}

func (r *memRefreshRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.refreshDeleteErr != nil {
		return 0, r.store.refreshDeleteErr
	}
	var n int64
	for id, t := range r.store.refresh {
		if t.ExpiresAt.Before(before) {
			delete(r.store.refresh, id)
			n++
		}
	}

	return n, nil
}

type memRevokedRepo struct{ store *memStore }

func (r *memRevokedRepo) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	_, ok := r.store.revoked[jti]

	return ok, nil
}

func (r *memRevokedRepo) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.revoked[jti]; !ok {
		r.store.revoked[jti] = expiresAt
	}

	return nil
}

func (r *memRevokedRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.revokedDeleteErr != nil {
		return 0, r.store.revokedDeleteErr
	}
	var n int64
	for jti, exp := range r.store.revoked {
		if exp.Before(before) {
			delete(r.store.revoked, jti)
			n++
		}
	}

	return n, nil
}

type memRoleRepo struct{ store *memStore }

func (r *memRoleRepo) FindRolesForUser(_ context.Context, userID, tenantID uuid.UUID) ([]*entity.Role, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var roles []*entity.Role
	for _, role := range r.store.roles[userID] {
		if role.TenantID == tenantID {
			roles = append(roles, role)
		}
	}

	return roles, nil
}

func (r *memRoleRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]*entity.Role, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seen := map[uuid.UUID]bool{}
	var roles []*entity.Role
	for _, assigned := range r.store.roles {
		for _, role := range assigned {
			if role.TenantID == tenantID && !seen[role.ID] {
				seen[role.ID] = true
				roles = append(roles, role)
			}
		}
	}

	return roles, nil
}

// recordingAudit keeps every event it is given.
type recordingAudit struct {
	mu     sync.Mutex
	events []entity.AuditEvent
}

func (a *recordingAudit) Record(_ context.Context, event entity.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *recordingAudit) actions() []entity.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]entity.AuditAction, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Action)
	}

	return out
}

// countingMetrics counts AuthEvent calls by "event/outcome".
type countingMetrics struct {
	mu      sync.Mutex
	events  map[string]int
	deleted map[string]int64
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{events: map[string]int{}, deleted: map[string]int64{}}
}

func (m *countingMetrics) AuthEvent(event, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event+"/"+outcome]++
}

func (m *countingMetrics) CleanupDeleted(kind string, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted[kind] += count
}

func (m *countingMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.events[key]
}
