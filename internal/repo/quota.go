package repo

import (
	"context"
	"fmt"

	"leadcrm/internal/quota"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuotaRepository reads tenant ceilings and resource counts
type QuotaRepository struct {
	db *gorm.DB
}

// NewQuotaRepository creates a new quota repository
func NewQuotaRepository(db *gorm.DB) *QuotaRepository {
	return &QuotaRepository{db: db}
}

// Ceiling returns the tenant's configured maximum for resource, or nil
func (r *QuotaRepository) Ceiling(ctx context.Context, tenantID uuid.UUID, resource quota.Resource) (*int64, error) {
	var tenant models.Tenant
	found, err := firstOrNil(r.db.WithContext(ctx).
		Select("id", "max_users", "max_leads").
		Where("id = ?", tenantID), &tenant)
	if err != nil || !found {
		return nil, err
	}

	var v *int
	switch resource {
	case quota.Users:
		v = tenant.MaxUsers
	case quota.Leads:
		v = tenant.MaxLeads
	default:
		return nil, fmt.Errorf("unknown quota resource %q", resource)
	}
	if v == nil {
		return nil, nil
	}
	max := int64(*v)
	return &max, nil
}

// Count returns the tenant's current number of resource rows
func (r *QuotaRepository) Count(ctx context.Context, tenantID uuid.UUID, resource quota.Resource) (int64, error) {
	var model interface{}
	switch resource {
	case quota.Users:
		model = &models.User{}
	case quota.Leads:
		model = &models.Lead{}
	default:
		return 0, fmt.Errorf("unknown quota resource %q", resource)
	}

	var count int64
	err := r.db.WithContext(ctx).Model(model).Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, err
}
