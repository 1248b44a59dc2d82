package services

import (
	"context"
	"testing"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"
	"leadcrm/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	ctx := context.Background()

	user, err := f.users.Create(ctx, admin, CreateUserRequest{Email: "rep@acme.test", Password: "secret123", Role: "manager"})
	require.NoError(t, err)
	assert.Equal(t, "manager", user.Role)
	assert.Equal(t, "rep@acme.test", user.Name)

	id, err := f.identities.Authenticate(ctx, "rep@acme.test", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	// admin cannot be granted through creation
	user, err = f.users.Create(ctx, admin, CreateUserRequest{Email: "boss@acme.test", Password: "secret123", Name: "Boss", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "sales", user.Role)

	_, err = f.users.Create(ctx, admin, CreateUserRequest{Email: "rep@acme.test", Password: "secret123"})
	assertKind(t, err, apperr.KindValidation)

	manager := f.addMember(t, admin.TenantID, auth.RoleManager)
	_, err = f.users.Create(ctx, manager, CreateUserRequest{Email: "x@acme.test", Password: "secret123"})
	assertKind(t, err, apperr.KindAuthorization)
}

func TestCreateUserQuota(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	f.setCeiling(t, admin.TenantID, "max_users", 2)
	ctx := context.Background()

	_, err := f.users.Create(ctx, admin, CreateUserRequest{Email: "second@acme.test", Password: "secret123"})
	require.NoError(t, err)

	_, err = f.users.Create(ctx, admin, CreateUserRequest{Email: "third@acme.test", Password: "secret123"})
	assertKind(t, err, apperr.KindQuotaExceeded)

	_, err = f.identities.Authenticate(ctx, "third@acme.test", "secret123")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestListUsersByRole(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	f.newTenant(t, "Other Inc", "owner@other.test")
	ctx := context.Background()

	sales := f.addMember(t, admin.TenantID, auth.RoleSales)

	list, err := f.users.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.users.List(ctx, sales)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestUpdateUserSelfRole(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	f.addMember(t, admin.TenantID, auth.RoleAdmin)
	ctx := context.Background()

	_, err := f.users.Update(ctx, admin, admin.UserID, UpdateUserRequest{Role: strPtr("manager")})
	assertKind(t, err, apperr.KindValidation)
	assert.Contains(t, err.Error(), "own role")

	renamed, err := f.users.Update(ctx, admin, admin.UserID, UpdateUserRequest{Name: strPtr(" Owner ")})
	require.NoError(t, err)
	assert.Equal(t, "Owner", renamed.Name)
	assert.Equal(t, "admin", renamed.Role)
}

func TestUpdateUserAdminDemotion(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	ctx := context.Background()

	second := f.addMember(t, admin.TenantID, auth.RoleAdmin)

	// one of two admins can be demoted
	demoted, err := f.users.Update(ctx, admin, second.UserID, UpdateUserRequest{Role: strPtr("sales")})
	require.NoError(t, err)
	assert.Equal(t, "sales", demoted.Role)

	// a token still carrying admin after demotion cannot demote the last admin
	stale := &auth.Session{UserID: second.UserID, TenantID: admin.TenantID, Role: auth.RoleAdmin}
	_, err = f.users.Update(ctx, stale, admin.UserID, UpdateUserRequest{Role: strPtr("manager")})
	assertKind(t, err, apperr.KindValidation)
	assert.Contains(t, err.Error(), "last admin")

	assert.Equal(t, int64(1), f.count(t, &models.User{}, "tenant_id = ? AND role = ?", admin.TenantID, "admin"))
}

func TestUpdateUserValidation(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	other := f.newTenant(t, "Other Inc", "owner@other.test")
	ctx := context.Background()

	member := f.addMember(t, admin.TenantID, auth.RoleSales)

	_, err := f.users.Update(ctx, admin, member.UserID, UpdateUserRequest{Role: strPtr("owner")})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.users.Update(ctx, admin, other.UserID, UpdateUserRequest{Name: strPtr("x")})
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.users.Update(ctx, member, admin.UserID, UpdateUserRequest{Name: strPtr("x")})
	assertKind(t, err, apperr.KindAuthorization)
}
