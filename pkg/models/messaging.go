package models

import (
	"github.com/google/uuid"
)

// Message types
const (
	MessageInbound      = "inbound"
	MessageOutbound     = "outbound"
	MessageInternalNote = "internal_note"
)

// Message is a single communication tied to a lead. LeadID is nil for
// inbound messages whose lead could not be resolved.
type Message struct {
	BaseTenantModel
	LeadID  *uuid.UUID `gorm:"type:uuid;index" json:"lead_id"`
	Content string     `json:"content"`
	Type    string     `gorm:"not null;default:'inbound'" json:"type"`
	IsRead  bool       `gorm:"not null;default:false" json:"is_read"`
}

// WhatsAppWorkspace binds a WhatsApp Cloud API phone_number_id to a tenant
type WhatsAppWorkspace struct {
	BaseTenantModel
	PhoneNumberID string `gorm:"not null;uniqueIndex" json:"phone_number_id"`
}
