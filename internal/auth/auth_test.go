package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"leadcrm/internal/apperr"
	"leadcrm/pkg/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
		ok   bool
	}{
		{"admin", RoleAdmin, true},
		{"manager", RoleManager, true},
		{"sales", RoleSales, true},
		{"ventas", RoleSales, true},
		{"support", RoleSupport, true},
		{"readonly", RoleReadonly, true},
		{"", "", false},
		{"Admin", "", false},
		{"owner", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeRole(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestRoleIsAssignable(t *testing.T) {
	assert.False(t, RoleAdmin.IsAssignable())
	assert.True(t, RoleSales.IsAssignable())
	assert.True(t, RoleReadonly.IsAssignable())
}

func signRaw(t *testing.T, claims TokenClaims, secret string) string {
	t.Helper()
	claims.RegisteredClaims = jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestResolveSession(t *testing.T) {
	svc := NewService(testSecret, time.Hour, nil, nil)
	userID, tenantID := uuid.New(), uuid.New()

	t.Run("legacy role is normalized", func(t *testing.T) {
		token := signRaw(t, TokenClaims{UserID: userID.String(), TenantID: tenantID.String(), TenantName: "Acme", Role: "ventas"}, testSecret)
		session, err := svc.ResolveSession(token)
		require.NoError(t, err)
		assert.Equal(t, RoleSales, session.Role)
		assert.Equal(t, userID, session.UserID)
		assert.Equal(t, tenantID, session.TenantID)
		assert.Equal(t, "Acme", session.TenantName)
	})

	t.Run("unknown role", func(t *testing.T) {
		token := signRaw(t, TokenClaims{UserID: userID.String(), TenantID: tenantID.String(), Role: "owner"}, testSecret)
		_, err := svc.ResolveSession(token)
		assert.True(t, apperr.Is(err, apperr.KindAuthentication))
	})

	t.Run("missing tenant", func(t *testing.T) {
		token := signRaw(t, TokenClaims{UserID: userID.String(), Role: "admin"}, testSecret)
		_, err := svc.ResolveSession(token)
		assert.True(t, apperr.Is(err, apperr.KindAuthentication))
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signRaw(t, TokenClaims{UserID: userID.String(), TenantID: tenantID.String(), Role: "admin"}, "other")
		_, err := svc.ResolveSession(token)
		assert.True(t, apperr.Is(err, apperr.KindAuthentication))
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := svc.ResolveSession("")
		assert.True(t, apperr.Is(err, apperr.KindAuthentication))
	})

	t.Run("issued token round trips", func(t *testing.T) {
		token, err := svc.issue(Session{UserID: userID, TenantID: tenantID, TenantName: "Acme", Role: RoleManager})
		require.NoError(t, err)
		session, err := svc.ResolveSession(token)
		require.NoError(t, err)
		assert.Equal(t, RoleManager, session.Role)
	})
}

type fakeUsers struct {
	users   map[uuid.UUID]*models.User
	tenants map[uuid.UUID]*models.Tenant
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) GetTenant(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	if t, ok := f.tenants[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Credential{}))
	return db
}

func TestLocalIdentityProvider(t *testing.T) {
	ctx := context.Background()
	idp := NewLocalIdentityProvider(newTestDB(t))

	id, err := idp.CreateUser(ctx, "Owner@Acme.io ", "hunter22", true)
	require.NoError(t, err)

	_, err = idp.CreateUser(ctx, "owner@acme.io", "other", true)
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err := idp.Authenticate(ctx, "owner@acme.io", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = idp.Authenticate(ctx, "owner@acme.io", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, idp.DeleteUser(ctx, id))
	_, err = idp.Authenticate(ctx, "owner@acme.io", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateUserUntranslatedDuplicate(t *testing.T) {
	gdb := newTestDB(t)
	// report the constraint the way the postgres driver does without TranslateError
	require.NoError(t, gdb.Callback().Create().Before("gorm:create").Register("test:duplicate_credential", func(tx *gorm.DB) {
		if tx.Statement.Table == "credentials" {
			tx.AddError(fmt.Errorf("insert credential: %w", &pgconn.PgError{Code: "23505"}))
		}
	}))

	_, err := NewLocalIdentityProvider(gdb).CreateUser(context.Background(), "rep@acme.io", "pw123456", true)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	idp := NewLocalIdentityProvider(newTestDB(t))
	id, err := idp.CreateUser(ctx, "rep@acme.io", "pw123456", true)
	require.NoError(t, err)

	tenantID := uuid.New()
	users := &fakeUsers{
		users: map[uuid.UUID]*models.User{
			id: {BaseModel: models.BaseModel{ID: id}, TenantID: tenantID, Email: "rep@acme.io", Role: "ventas"},
		},
		tenants: map[uuid.UUID]*models.Tenant{},
	}
	svc := NewService(testSecret, time.Hour, idp, users)

	resp, err := svc.Login(ctx, LoginRequest{Email: "rep@acme.io", Password: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, RoleSales, resp.Session.Role)
	assert.Equal(t, defaultTenantName, resp.Session.TenantName)
	assert.Equal(t, "rep@acme.io", resp.Name)

	session, err := svc.ResolveSession(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tenantID, session.TenantID)

	_, err = svc.Login(ctx, LoginRequest{Email: "rep@acme.io", Password: "nope"})
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))
}
