package repo

import (
	"context"

	"leadcrm/internal/apperr"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository handles user data access
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID gets a user by ID across tenants. Only session issuing uses this.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser gets a tenant's user by ID
func (r *UserRepository) GetUser(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserInTenant reports whether the user belongs to the tenant
func (r *UserRepository) UserInTenant(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND tenant_id = ?", userID, tenantID).
		Count(&count).Error
	return count > 0, err
}

// ListUsers lists a tenant's users, newest first
func (r *UserRepository) ListUsers(ctx context.Context, tenantID uuid.UUID) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&users).Error
	return users, err
}

// CreateUser creates a user row. The ID must already be set from the
// identity provider.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("User already exists", err)
		}
		return err
	}
	return nil
}

// UpdateUser applies column updates to a tenant's user and returns the row
func (r *UserRepository) UpdateUser(ctx context.Context, tenantID, id uuid.UUID, updates map[string]interface{}) (*models.User, error) {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetUser(ctx, tenantID, id)
}

// DeleteUser removes a tenant's user row
func (r *UserRepository) DeleteUser(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.User{}).Error
}

// CountByRole counts a tenant's users holding role
func (r *UserRepository) CountByRole(ctx context.Context, tenantID uuid.UUID, role string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("tenant_id = ? AND role = ?", tenantID, role).
		Count(&count).Error
	return count, err
}

// TenantRepository handles tenant data access
type TenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// GetTenant gets a tenant by ID
func (r *TenantRepository) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// ListTenantIDs returns every tenant id
func (r *TenantRepository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Tenant{}).Order("created_at ASC").Pluck("id", &ids).Error
	return ids, err
}

// SlugExists reports whether any tenant already uses slug
func (r *TenantRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Tenant{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// CreateTenant creates a tenant
func (r *TenantRepository) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if err := r.db.WithContext(ctx).Create(tenant).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("A company with a very similar name already exists", err)
		}
		return err
	}
	return nil
}

// DeleteTenant removes a tenant and everything signup created under it
func (r *TenantRepository) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&models.PipelineStage{}, &models.User{}} {
			if err := tx.Where("tenant_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&models.Tenant{}).Error
	})
}
