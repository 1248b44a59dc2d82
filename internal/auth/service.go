package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadcrm/internal/apperr"
	"leadcrm/pkg/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// defaultTenantName is shown when the tenant row cannot be read at login
const defaultTenantName = "My company"

// Service issues and resolves session tokens
type Service struct {
	secret     []byte
	duration   time.Duration
	identities IdentityProvider
	users      UserRepository
}

// UserRepository loads the profile data embedded in a session
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// NewService creates a new auth service
func NewService(secret string, duration time.Duration, identities IdentityProvider, users UserRepository) *Service {
	return &Service{
		secret:     []byte(secret),
		duration:   duration,
		identities: identities,
		users:      users,
	}
}

// LoginRequest represents login request data
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents login response data
type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int64    `json:"expires_in"`
	Session     *Session `json:"session"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
}

// TokenClaims represents JWT token claims. Fields are kept as raw strings so
// resolution can tell a bad signature apart from a bad payload.
type TokenClaims struct {
	UserID     string `json:"user_id"`
	TenantID   string `json:"tenant_id"`
	TenantName string `json:"tenant_name"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// Login authenticates credentials and issues a session token
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	userID, err := s.identities.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, apperr.Authentication("Invalid credentials")
		}
		return nil, apperr.Upstream(fmt.Errorf("authenticate: %w", err))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Authentication("Invalid credentials")
		}
		return nil, apperr.Upstream(fmt.Errorf("load user: %w", err))
	}

	tenantName := defaultTenantName
	if tenant, err := s.users.GetTenant(ctx, user.TenantID); err == nil && tenant.Name != "" {
		tenantName = tenant.Name
	}

	claims := TokenClaims{
		UserID:     user.ID.String(),
		TenantID:   user.TenantID.String(),
		TenantName: tenantName,
		Role:       user.Role,
	}
	session, ok := sessionFromClaims(&claims)
	if !ok {
		return nil, apperr.Authentication("Invalid session")
	}

	token, err := s.issue(*session)
	if err != nil {
		return nil, apperr.Upstream(err)
	}

	name := user.Name
	if name == "" {
		name = user.Email
	}

	return &LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.duration.Seconds()),
		Session:     session,
		Name:        name,
		Email:       user.Email,
	}, nil
}

// issue signs a token for an already resolved session
func (s *Service) issue(session Session) (string, error) {
	return s.sign(TokenClaims{
		UserID:     session.UserID.String(),
		TenantID:   session.TenantID.String(),
		TenantName: session.TenantName,
		Role:       string(session.Role),
	})
}

// ResolveSession validates a raw token and returns the normalized session.
// Every failure is an authentication error.
func (s *Service) ResolveSession(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, apperr.Authentication("Unauthorized")
	}
	claims, err := s.validateToken(tokenString)
	if err != nil {
		return nil, apperr.Authentication("Unauthorized")
	}
	session, ok := sessionFromClaims(claims)
	if !ok {
		return nil, apperr.Authentication("Invalid session")
	}
	return session, nil
}

func (s *Service) sign(claims TokenClaims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) validateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
