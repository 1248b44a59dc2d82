package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Lead origins
const (
	OriginManual   = "manual"
	OriginMeta     = "meta"
	OriginGoogle   = "google"
	OriginWhatsApp = "whatsapp"
)

// PipelineStage is an ordered step in a tenant's sales funnel
type PipelineStage struct {
	BaseTenantModel
	Name       string `gorm:"not null" json:"name"`
	Order      int    `gorm:"column:position;not null;default:0" json:"order"`
	IsTerminal bool   `gorm:"not null;default:false" json:"is_terminal"`
}

// Lead is a prospective customer tracked through the pipeline
type Lead struct {
	BaseTenantModel
	ContactID        *uuid.UUID     `gorm:"type:uuid;index" json:"contact_id"`
	Origin           string         `gorm:"not null;default:'manual';index" json:"origin"`
	StageID          *uuid.UUID     `gorm:"type:uuid;index" json:"stage_id"`
	AssignedToUserID *uuid.UUID     `gorm:"type:uuid;index" json:"assigned_to_user_id"`
	Name             string         `json:"name"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	RawData          datatypes.JSON `json:"raw_data,omitempty"`
}

// Contact anchors inbound channel identities. (tenant_id, phone) is unique.
type Contact struct {
	BaseTenantModel
	Phone string `gorm:"not null" json:"phone"`
	Name  string `json:"name"`
}

// Task is a follow-up reminder, optionally attached to a lead
type Task struct {
	BaseTenantModel
	LeadID *uuid.UUID `gorm:"type:uuid;index" json:"lead_id"`
	Title  string     `gorm:"not null" json:"title"`
	DueAt  *time.Time `json:"due_at"`
	Done   bool       `gorm:"not null;default:false" json:"done"`
}

// LeadSource binds an external Meta/Google form to a tenant.
// ExternalID is "<page_id>_<form_id>" for Meta.
type LeadSource struct {
	BaseTenantModel
	Origin     string `gorm:"not null;uniqueIndex:idx_lead_sources_origin_external" json:"origin"`
	ExternalID string `gorm:"not null;uniqueIndex:idx_lead_sources_origin_external" json:"external_id"`
	Name       string `json:"name"`
}
