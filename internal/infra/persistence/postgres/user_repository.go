package postgres

import (
	"context"
	"strings"

	"tenantauth/internal/domain/entity"
	domainerrors "tenantauth/internal/domain/errors"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

// userRepository implements the domain.UserRepository interface using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a domain.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// FindByID retrieves a user by ID inside the tenant.
func (repo *userRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.User, error) {
	return repo.first(ctx, "failed to find user by id",
		repo.db.Where("tenant_id = ? AND id = ?", tenantID, id))
}

// FindByEmail retrieves a user by email inside the tenant.
func (repo *userRepository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*entity.User, error) {
	return repo.first(ctx, "failed to find user by email",
		repo.db.Where("tenant_id = ? AND email = ?", tenantID, normalizeEmail(email)))
}

// FindByOAuth retrieves a user by linked provider identity inside the tenant.
func (repo *userRepository) FindByOAuth(ctx context.Context, tenantID uuid.UUID, provider, oauthID string) (*entity.User, error) {
	return repo.first(ctx, "failed to find user by oauth identity",
		repo.db.Where("tenant_id = ? AND oauth_provider = ? AND oauth_id = ?", tenantID, provider, oauthID))
}

// FindByIDUnscoped searches every tenant. Reads go to the primary so a just-created account is visible.
func (repo *userRepository) FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return repo.first(ctx, "failed to find user by id",
		repo.db.Clauses(dbresolver.Write).Where("id = ?", id))
}

// FindByEmailUnscoped searches every tenant. The oldest account wins when an email exists in several tenants.
func (repo *userRepository) FindByEmailUnscoped(ctx context.Context, email string) (*entity.User, error) {
	return repo.first(ctx, "failed to find user by email",
		repo.db.Clauses(dbresolver.Write).Where("email = ?", normalizeEmail(email)))
}

// FindByOAuthUnscoped searches every tenant for the provider identity.
func (repo *userRepository) FindByOAuthUnscoped(ctx context.Context, provider, oauthID string) (*entity.User, error) {
	return repo.first(ctx, "failed to find user by oauth identity",
		repo.db.Clauses(dbresolver.Write).Where("oauth_provider = ? AND oauth_id = ?", provider, oauthID))
}

// Create persists a new user. IDs and timestamps are assigned here when missing.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = normalizeEmail(user.Email)
	userM := fromUserDomain(user)

	if err := repo.db.WithContext(ctx).Create(userM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return errors.Wrap(repository.ErrUserEmailTaken, "email already exists in tenant")
		}
		if isForeignKeyConstraintViolation(err) {
			return errors.Wrap(repository.ErrTenantNotFound, "invalid tenant reference")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WithDetails("missing required user information")
		}
		// For other database errors, return a generic database error
		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// LinkOAuth stores the provider identity on an existing user.
func (repo *userRepository) LinkOAuth(ctx context.Context, userID uuid.UUID, provider, oauthID string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"oauth_provider": provider,
			"oauth_id":       oauthID,
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to link oauth identity")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

// ListByTenant returns one page of the tenant's users, newest first.
func (repo *userRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]*entity.User, int64, error) {
	var total int64
	if err := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count users")
	}

	var userMs []model.UserModel
	if err := repo.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&userMs).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to list users")
	}

	users := make([]*entity.User, 0, len(userMs))
	for i := range userMs {
		users = append(users, toUserDomain(&userMs[i]))
	}

	return users, total, nil
}

// LockEmail takes a transaction scoped advisory lock keyed by the normalized email.
// Email uniqueness across tenants has no index to lean on, so writers serialize here instead.
func (repo *userRepository) LockEmail(ctx context.Context, email string) error {
	err := repo.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", normalizeEmail(email)).Error
	if err != nil {
		return errors.Wrap(err, "failed to lock email")
	}

	return nil
}

// Update writes email, full name and the active flag. The tenant filter keeps writes inside the caller's tenant.
func (repo *userRepository) Update(ctx context.Context, user *entity.User) error {
	user.Email = normalizeEmail(user.Email)
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("tenant_id = ? AND id = ?", user.TenantID, user.ID).
		Updates(map[string]any{
			"email":     user.Email,
			"full_name": user.FullName,
			"is_active": user.IsActive,
		})
	if result.Error != nil {
		if isUniqueConstraintViolation(result.Error) {
			return errors.Wrap(repository.ErrUserEmailTaken, "email already exists in tenant")
		}

		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update user")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

func (repo *userRepository) first(ctx context.Context, errMsg string, query *gorm.DB) (*entity.User, error) {
	var userM model.UserModel
	err := query.WithContext(ctx).Order("created_at ASC").First(&userM).Error
	if err != nil {
		// If the error is 'record not found', return a domain-specific error.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, errMsg)
	}

	return toUserDomain(&userM), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// --- Mapper Functions ---

func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:            data.ID,
		TenantID:      data.TenantID,
		Email:         data.Email,
		PasswordHash:  data.PasswordHash,
		FullName:      data.FullName,
		IsActive:      data.IsActive,
		IsSuperuser:   data.IsSuperuser,
		OAuthProvider: data.OAuthProvider,
		OAuthID:       data.OAuthID,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
	}
}

func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	return &model.UserModel{
		ID:            data.ID,
		TenantID:      data.TenantID,
		Email:         data.Email,
		PasswordHash:  data.PasswordHash,
		FullName:      data.FullName,
		IsActive:      data.IsActive,
		IsSuperuser:   data.IsSuperuser,
		OAuthProvider: data.OAuthProvider,
		OAuthID:       data.OAuthID,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
	}
}
