package services

import (
	"context"
	"strings"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"
	"leadcrm/internal/authz"
	"leadcrm/internal/repo"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var leadSourceOrigins = map[string]bool{
	models.OriginMeta:   true,
	models.OriginGoogle: true,
}

// ChannelService manages the bindings that route webhook deliveries to a
// tenant: Meta/Google lead sources and WhatsApp workspaces.
type ChannelService struct {
	store *repo.Store
}

// NewChannelService creates a new channel service
func NewChannelService(store *repo.Store) *ChannelService {
	return &ChannelService{store: store}
}

// CreateLeadSourceRequest is the body of a lead source registration
type CreateLeadSourceRequest struct {
	Origin     string `json:"origin" validate:"max=50"`
	ExternalID string `json:"external_id" validate:"max=200"`
	Name       string `json:"name" validate:"max=200"`
}

// CreateWorkspaceRequest is the body of a WhatsApp workspace binding
type CreateWorkspaceRequest struct {
	PhoneNumberID string `json:"phone_number_id" validate:"max=64"`
}

// ListLeadSources lists the tenant's lead sources
func (s *ChannelService) ListLeadSources(ctx context.Context, session *auth.Session) ([]models.LeadSource, error) {
	sources, err := s.store.ListLeadSources(ctx, session.TenantID)
	if err != nil {
		return nil, storeErr("list lead sources", "Lead source", err)
	}
	return sources, nil
}

// CreateLeadSource registers a form binding. For Meta the external id is
// "<page_id>_<form_id>".
func (s *ChannelService) CreateLeadSource(ctx context.Context, session *auth.Session, req CreateLeadSourceRequest) (*models.LeadSource, error) {
	if authz.IsReadOnly(session.Role) {
		return nil, apperr.Forbidden("Forbidden")
	}
	origin := strings.ToLower(strings.TrimSpace(req.Origin))
	externalID := strings.TrimSpace(req.ExternalID)
	if origin == "" || externalID == "" {
		return nil, apperr.Validation("origin and external_id are required")
	}
	if !leadSourceOrigins[origin] {
		return nil, apperr.Validation("Invalid origin")
	}

	source := &models.LeadSource{
		Origin:     origin,
		ExternalID: externalID,
		Name:       strings.TrimSpace(req.Name),
	}
	source.TenantID = session.TenantID

	if err := s.store.CreateLeadSource(ctx, source); err != nil {
		return nil, storeErr("create lead source", "Lead source", err)
	}
	log.Info().
		Str("tenant_id", session.TenantID.String()).
		Str("origin", origin).
		Str("external_id", externalID).
		Msg("lead source registered")
	return source, nil
}

// ListWorkspaces lists the tenant's WhatsApp bindings
func (s *ChannelService) ListWorkspaces(ctx context.Context, session *auth.Session) ([]models.WhatsAppWorkspace, error) {
	list, err := s.store.ListWorkspaces(ctx, session.TenantID)
	if err != nil {
		return nil, storeErr("list workspaces", "Workspace", err)
	}
	return list, nil
}

// CreateWorkspace binds a phone_number_id to the tenant
func (s *ChannelService) CreateWorkspace(ctx context.Context, session *auth.Session, req CreateWorkspaceRequest) (*models.WhatsAppWorkspace, error) {
	if authz.IsReadOnly(session.Role) {
		return nil, apperr.Forbidden("Forbidden")
	}
	phoneNumberID := strings.TrimSpace(req.PhoneNumberID)
	if phoneNumberID == "" {
		return nil, apperr.Validation("phone_number_id is required")
	}

	ws := &models.WhatsAppWorkspace{PhoneNumberID: phoneNumberID}
	ws.TenantID = session.TenantID
	if err := s.store.CreateWorkspace(ctx, ws); err != nil {
		return nil, storeErr("create workspace", "Workspace", err)
	}
	log.Info().
		Str("tenant_id", session.TenantID.String()).
		Str("phone_number_id", phoneNumberID).
		Msg("whatsapp workspace bound")
	return ws, nil
}

// DeleteWorkspace removes one of the tenant's WhatsApp bindings
func (s *ChannelService) DeleteWorkspace(ctx context.Context, session *auth.Session, id uuid.UUID) error {
	if authz.IsReadOnly(session.Role) {
		return apperr.Forbidden("Forbidden")
	}
	if err := s.store.DeleteWorkspace(ctx, session.TenantID, id); err != nil {
		return storeErr("delete workspace", "Workspace", err)
	}
	return nil
}
