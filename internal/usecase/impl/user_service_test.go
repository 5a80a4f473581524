package impl

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tenantauth/internal/domain/entity"
	domainerrors "tenantauth/internal/domain/errors"
	"tenantauth/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_GetUserIsTenantScoped(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(UserServiceParams{UserRepo: store.userRepo(), Logger: newDiscardLogger()})
	tenantID := uuid.New()
	user := store.addUser(entity.User{TenantID: tenantID, Email: "u@x.com", IsActive: true})

	got, err := svc.GetUser(context.Background(), tenantID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.GetUser(context.Background(), uuid.New(), user.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func newUserServiceFixture() (*memStore, usecase.UserUsecase) {
	store := newMemStore()

	return store, NewUserService(UserServiceParams{UserRepo: store.userRepo(), Logger: newDiscardLogger()})
}

func TestUserService_ListUsers(t *testing.T) {
	store, svc := newUserServiceFixture()
	tenantID := uuid.New()
	base := time.Now()
	for i := range 3 {
		store.addUser(entity.User{TenantID: tenantID, Email: fmt.Sprintf("u%d@x.com", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	store.addUser(entity.User{TenantID: uuid.New(), Email: "other@x.com", CreatedAt: base})

	page, err := svc.ListUsers(context.Background(), tenantID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "u2@x.com", page.Users[0].Email)

	page, err = svc.ListUsers(context.Background(), tenantID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "u0@x.com", page.Users[0].Email)
}

func TestUserService_ListUsersNormalizesPaging(t *testing.T) {
	_, svc := newUserServiceFixture()

	page, err := svc.ListUsers(context.Background(), uuid.New(), 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxUserPageSize, page.PageSize)
	assert.Empty(t, page.Users)

	page, err = svc.ListUsers(context.Background(), uuid.New(), -3, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultUserPageSize, page.PageSize)
}

func TestUserService_UpdateUser(t *testing.T) {
	store, svc := newUserServiceFixture()
	tenantID := uuid.New()
	user := store.addUser(entity.User{TenantID: tenantID, Email: "old@x.com", FullName: "Old", IsActive: true})

	got, err := svc.UpdateUser(context.Background(), tenantID, user.ID, &usecase.UpdateUserInput{
		Email:    strPtr("  New@X.com "),
		FullName: strPtr("New Name"),
	})
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", got.Email)
	assert.Equal(t, "New Name", got.FullName)

	stored, err := store.userRepo().FindByID(context.Background(), tenantID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", stored.Email)
}

func TestUserService_UpdateUserEmailConflictIsTenantScoped(t *testing.T) {
	store, svc := newUserServiceFixture()
	t1, t2 := uuid.New(), uuid.New()
	store.addUser(entity.User{TenantID: t1, Email: "a@x.com"})
	taken := store.addUser(entity.User{TenantID: t2, Email: "taken@x.com"})
	user := store.addUser(entity.User{TenantID: t2, Email: "b@x.com"})

	// a@x.com only exists in another tenant, so it is free here.
	got, err := svc.UpdateUser(context.Background(), t2, user.ID, &usecase.UpdateUserInput{Email: strPtr("a@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)

	_, err = svc.UpdateUser(context.Background(), t2, user.ID, &usecase.UpdateUserInput{Email: strPtr(taken.Email)})
	assert.ErrorIs(t, err, domainerrors.ErrEmailExists)
}

func TestUserService_UpdateUserOtherTenant(t *testing.T) {
	store, svc := newUserServiceFixture()
	user := store.addUser(entity.User{TenantID: uuid.New(), Email: "a@x.com"})

	_, err := svc.UpdateUser(context.Background(), uuid.New(), user.ID, &usecase.UpdateUserInput{FullName: strPtr("X")})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestUserService_SetActive(t *testing.T) {
	store, svc := newUserServiceFixture()
	tenantID := uuid.New()
	user := store.addUser(entity.User{TenantID: tenantID, Email: "a@x.com", IsActive: true})

	got, err := svc.SetActive(context.Background(), tenantID, user.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	stored, err := store.userRepo().FindByID(context.Background(), tenantID, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	got, err = svc.SetActive(context.Background(), tenantID, user.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	_, err = svc.SetActive(context.Background(), uuid.New(), user.ID, false)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func strPtr(s string) *string { return &s }
