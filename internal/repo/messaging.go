package repo

import (
	"context"

	"leadcrm/internal/apperr"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactRepository handles contact data access
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// FindContact returns the tenant's contact for a normalized phone, or nil
func (r *ContactRepository) FindContact(ctx context.Context, tenantID uuid.UUID, phone string) (*models.Contact, error) {
	var contact models.Contact
	found, err := firstOrNil(r.db.WithContext(ctx).
		Where("tenant_id = ? AND phone = ?", tenantID, phone), &contact)
	if err != nil || !found {
		return nil, err
	}
	return &contact, nil
}

// CreateContact inserts a contact. A concurrent insert of the same
// (tenant_id, phone) surfaces as a Conflict.
func (r *ContactRepository) CreateContact(ctx context.Context, contact *models.Contact) error {
	if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("Contact already exists", err)
		}
		return err
	}
	return nil
}

// MessageRepository handles message data access
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateMessage creates a message
func (r *MessageRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// GetMessage gets a tenant's message by ID
func (r *MessageRepository) GetMessage(ctx context.Context, tenantID, id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SetMessageRead sets the read flag of a tenant's message
func (r *MessageRepository) SetMessageRead(ctx context.Context, tenantID, id uuid.UUID, isRead bool) error {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("is_read", isRead)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecentLeadMessages returns the tenant's newest messages that have a lead
func (r *MessageRepository) RecentLeadMessages(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND lead_id IS NOT NULL", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// LeadMessages returns a lead's messages oldest first
func (r *MessageRepository) LeadMessages(ctx context.Context, tenantID, leadID uuid.UUID, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND lead_id = ?", tenantID, leadID).
		Order("created_at ASC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// MarkLeadMessagesRead flags every message of a lead as read
func (r *MessageRepository) MarkLeadMessagesRead(ctx context.Context, tenantID, leadID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("tenant_id = ? AND lead_id = ? AND is_read = ?", tenantID, leadID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// WorkspaceRepository handles WhatsApp workspace data access
type WorkspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository creates a new workspace repository
func NewWorkspaceRepository(db *gorm.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

// WorkspaceTenant resolves a phone_number_id to its tenant, or nil
func (r *WorkspaceRepository) WorkspaceTenant(ctx context.Context, phoneNumberID string) (*uuid.UUID, error) {
	var ws models.WhatsAppWorkspace
	found, err := firstOrNil(r.db.WithContext(ctx).
		Select("id", "tenant_id").
		Where("phone_number_id = ?", phoneNumberID), &ws)
	if err != nil || !found {
		return nil, err
	}
	return &ws.TenantID, nil
}

// ListWorkspaces lists a tenant's bindings, newest first
func (r *WorkspaceRepository) ListWorkspaces(ctx context.Context, tenantID uuid.UUID) ([]models.WhatsAppWorkspace, error) {
	var list []models.WhatsAppWorkspace
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// CreateWorkspace binds a phone_number_id to a tenant
func (r *WorkspaceRepository) CreateWorkspace(ctx context.Context, ws *models.WhatsAppWorkspace) error {
	if err := r.db.WithContext(ctx).Create(ws).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("This phone number is already bound", err)
		}
		return err
	}
	return nil
}

// DeleteWorkspace removes a tenant's binding
func (r *WorkspaceRepository) DeleteWorkspace(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.WhatsAppWorkspace{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
