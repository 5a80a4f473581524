package impl

import (
	"context"
	"log/slog"
	"strings"

	"tenantauth/internal/domain/entity"
	domainerrors "tenantauth/internal/domain/errors"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	defaultUserPageSize = 20
	maxUserPageSize     = 100
)

// userService implements the UserUsecase interface.
type userService struct {
	userRepo repository.UserRepository
	logger   *slog.Logger
}

// UserServiceParams holds dependencies for UserService, injected by Fx.
type UserServiceParams struct {
	fx.In

	UserRepo repository.UserRepository
	Logger   *slog.Logger
}

// NewUserService is the constructor for userService.
func NewUserService(params UserServiceParams) usecase.UserUsecase {
	return &userService{
		userRepo: params.UserRepo,
		logger:   params.Logger,
	}
}

func (srv *userService) GetUser(ctx context.Context, tenantID, userID uuid.UUID) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			requestLogger(ctx, srv.logger).Debug("User lookup outside tenant or unknown",
				slog.String("tenant_id", tenantID.String()),
				slog.String("user_id", userID.String()),
			)

			return nil, errors.Wrap(domainerrors.ErrNotFound.WithMessage("User not found"), "get user")
		}

		return nil, errors.Wrap(err, "failed to load user")
	}

	return user, nil
}

func (srv *userService) ListUsers(ctx context.Context, tenantID uuid.UUID, page, pageSize int) (*usecase.UserPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultUserPageSize
	}
	pageSize = min(pageSize, maxUserPageSize)

	users, total, err := srv.userRepo.ListByTenant(ctx, tenantID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}

	return &usecase.UserPage{Users: users, Total: total, Page: page, PageSize: pageSize}, nil
}

func (srv *userService) UpdateUser(ctx context.Context, tenantID, userID uuid.UUID, input *usecase.UpdateUserInput) (*entity.User, error) {
	user, err := srv.GetUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			if err := srv.ensureEmailFree(ctx, tenantID, email); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}

	if err := srv.save(ctx, user); err != nil {
		return nil, err
	}
	requestLogger(ctx, srv.logger).Info("User updated",
		slog.String("tenant_id", tenantID.String()),
		slog.String("user_id", userID.String()),
	)

	return user, nil
}

func (srv *userService) SetActive(ctx context.Context, tenantID, userID uuid.UUID, active bool) (*entity.User, error) {
	user, err := srv.GetUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		return user, nil
	}

	user.IsActive = active
	if err := srv.save(ctx, user); err != nil {
		return nil, err
	}
	requestLogger(ctx, srv.logger).Info("User activation changed",
		slog.String("tenant_id", tenantID.String()),
		slog.String("user_id", userID.String()),
		slog.Bool("active", active),
	)

	return user, nil
}

// ensureEmailFree only looks inside the tenant; the same email may exist in other tenants.
func (srv *userService) ensureEmailFree(ctx context.Context, tenantID uuid.UUID, email string) error {
	_, err := srv.userRepo.FindByEmail(ctx, tenantID, email)
	switch {
	case err == nil:
		return errors.Wrap(domainerrors.ErrEmailExists.WithDetails("email: "+email), "update user")
	case errors.Is(err, repository.ErrUserNotFound):
		return nil
	default:
		return errors.Wrap(err, "failed to check email")
	}
}

func (srv *userService) save(ctx context.Context, user *entity.User) error {
	err := srv.userRepo.Update(ctx, user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUserEmailTaken):
		return errors.Wrap(domainerrors.ErrEmailExists.WithDetails("email: "+user.Email), "update user")
	case errors.Is(err, repository.ErrUserNotFound):
		return errors.Wrap(domainerrors.ErrNotFound.WithMessage("User not found"), "update user")
	default:
		return errors.Wrap(err, "failed to update user")
	}
}
