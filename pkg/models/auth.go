package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseTenantModel is the base model for all tenant-scoped entities
type BaseTenantModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BaseModel is the base model for system-wide entities
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID if not set
func (b *BaseTenantModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook to generate UUID if not set
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Default quota ceilings applied when a tenant row carries no value.
const (
	DefaultMaxUsers = 15
	DefaultMaxLeads = 2500
)

// Tenant represents a company workspace
type Tenant struct {
	BaseModel
	Name     string `gorm:"not null" json:"name"`
	Slug     string `gorm:"not null;uniqueIndex" json:"slug"`
	MaxUsers *int   `gorm:"default:15" json:"max_users"`
	MaxLeads *int   `gorm:"default:2500" json:"max_leads"`
}

// User represents a tenant member. The ID is shared with the identity provider.
type User struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Email    string    `gorm:"not null" json:"email"`
	Name     string    `json:"name"`
	Role     string    `gorm:"not null;index" json:"role"`
}

// Credential is the identity provider's record for a user
type Credential struct {
	BaseModel
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"not null" json:"-"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
}
