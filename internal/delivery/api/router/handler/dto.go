package handler

import (
	"time"

	"tenantauth/internal/domain/entity"
	"tenantauth/internal/usecase"

	"github.com/google/uuid"
)

// UserResponse is the public view of a user. Password hashes and provider ids never leave the service.
type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	IsActive      bool      `json:"is_active"`
	IsSuperuser   bool      `json:"is_superuser"`
	OAuthProvider *string   `json:"oauth_provider,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func newUserResponse(user *entity.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID,
		TenantID:      user.TenantID,
		Email:         user.Email,
		FullName:      user.FullName,
		IsActive:      user.IsActive,
		IsSuperuser:   user.IsSuperuser,
		OAuthProvider: user.OAuthProvider,
		CreatedAt:     user.CreatedAt,
	}
}

// UserListResponse is one page of users.
type UserListResponse struct {
	Items    []*UserResponse `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

func newUserListResponse(page *usecase.UserPage) *UserListResponse {
	items := make([]*UserResponse, 0, len(page.Users))
	for _, user := range page.Users {
		items = append(items, newUserResponse(user))
	}

	return &UserListResponse{Items: items, Total: page.Total, Page: page.Page, PageSize: page.PageSize}
}

// RegisterResponse is the token pair plus the newly created user.
type RegisterResponse struct {
	User *UserResponse `json:"user"`
	*entity.TokenPair
}

// RoleResponse lists a role with its permission names.
type RoleResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsDefault   bool      `json:"is_default"`
	Permissions []string  `json:"permissions"`
}

func newRoleResponses(roles []*entity.Role) []RoleResponse {
	out := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		names := make([]string, 0, len(role.Permissions))
		for _, p := range role.Permissions {
			names = append(names, p.Name())
		}
		out = append(out, RoleResponse{
			ID:          role.ID,
			Name:        role.Name,
			Description: role.Description,
			IsDefault:   role.IsDefault,
			Permissions: names,
		})
	}

	return out
}
