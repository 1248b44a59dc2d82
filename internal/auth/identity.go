package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadcrm/internal/db"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when an identity already exists for the email
	ErrEmailTaken = errors.New("email already registered")
)

// IdentityProvider authenticates credentials and owns user identities.
// The returned id is shared with the tenant's user row.
type IdentityProvider interface {
	CreateUser(ctx context.Context, email, password string, confirmed bool) (uuid.UUID, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	Authenticate(ctx context.Context, email, password string) (uuid.UUID, error)
}

// LocalIdentityProvider keeps bcrypt credentials in the credentials table
type LocalIdentityProvider struct {
	db *gorm.DB
}

// NewLocalIdentityProvider creates an identity provider on db
func NewLocalIdentityProvider(db *gorm.DB) *LocalIdentityProvider {
	return &LocalIdentityProvider{db: db}
}

// CreateUser registers a new identity
func (p *LocalIdentityProvider) CreateUser(ctx context.Context, email, password string, confirmed bool) (uuid.UUID, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return uuid.Nil, err
	}

	cred := &models.Credential{
		Email:        normalizeEmail(email),
		PasswordHash: hash,
	}
	if confirmed {
		now := time.Now()
		cred.EmailConfirmedAt = &now
	}

	if err := p.db.WithContext(ctx).Create(cred).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return uuid.Nil, ErrEmailTaken
		}
		return uuid.Nil, fmt.Errorf("create credential: %w", err)
	}
	return cred.ID, nil
}

// DeleteUser removes an identity. Deleting a missing identity is not an error.
func (p *LocalIdentityProvider) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return p.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Credential{}).Error
}

// Authenticate checks email and password
func (p *LocalIdentityProvider) Authenticate(ctx context.Context, email, password string) (uuid.UUID, error) {
	var cred models.Credential
	err := p.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, ErrInvalidCredentials
		}
		return uuid.Nil, err
	}
	if !VerifyPassword(password, cred.PasswordHash) {
		return uuid.Nil, ErrInvalidCredentials
	}
	return cred.ID, nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// VerifyPassword checks password against a bcrypt hash
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
