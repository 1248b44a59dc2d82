package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"
	"leadcrm/internal/authz"
	"leadcrm/internal/quota"
	"leadcrm/internal/realtime"
	"leadcrm/internal/repo"
	"leadcrm/internal/telemetry"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var leadOrigins = map[string]bool{
	models.OriginManual:   true,
	models.OriginMeta:     true,
	models.OriginGoogle:   true,
	models.OriginWhatsApp: true,
}

// LeadService handles lead listing and mutation
type LeadService struct {
	store     *repo.Store
	authz     *authz.Engine
	quota     *quota.Guard
	publisher realtime.Publisher
	metrics   *telemetry.Metrics
	now       func() time.Time
}

// NewLeadService creates a new lead service
func NewLeadService(store *repo.Store, engine *authz.Engine, guard *quota.Guard, publisher realtime.Publisher, metrics *telemetry.Metrics) *LeadService {
	return &LeadService{
		store:     store,
		authz:     engine,
		quota:     guard,
		publisher: publisher,
		metrics:   metrics,
		now:       time.Now,
	}
}

// CreateLeadRequest is the body of a manual lead creation
type CreateLeadRequest struct {
	Name             string       `json:"name" validate:"max=200"`
	Email            string       `json:"email" validate:"omitempty,email,max=254"`
	Phone            string       `json:"phone" validate:"max=50"`
	AssignedToUserID OptionalUUID `json:"assigned_to_user_id"`
}

// UpdateLeadRequest is the body of a lead patch. Absent keys are left alone.
type UpdateLeadRequest struct {
	StageID          OptionalUUID `json:"stage_id"`
	AssignedToUserID OptionalUUID `json:"assigned_to_user_id"`
}

// List returns the tenant's leads newest first. Sales only see leads
// assigned to them.
func (s *LeadService) List(ctx context.Context, session *auth.Session, origin string) ([]LeadView, error) {
	filter := repo.LeadFilter{}
	if origin != "" {
		if !leadOrigins[origin] {
			return nil, apperr.Validation("Invalid origin")
		}
		filter.Origin = origin
	}
	if session.Role == auth.RoleSales {
		filter.AssignedTo = &session.UserID
	}

	leads, err := s.store.ListLeads(ctx, session.TenantID, filter)
	if err != nil {
		return nil, storeErr("list leads", "Lead", err)
	}
	return newLeadViews(leads, s.now()), nil
}

// Create inserts a manual lead on the tenant's first stage. Admins and
// managers may assign it; a sales rep's lead is always assigned to them.
func (s *LeadService) Create(ctx context.Context, session *auth.Session, req CreateLeadRequest) (*models.Lead, error) {
	if !authz.CanWriteLeads(session.Role) {
		return nil, apperr.Forbidden("Forbidden")
	}

	assignee, err := s.createAssignee(ctx, session, req.AssignedToUserID)
	if err != nil {
		return nil, err
	}

	if err := s.quota.Require(ctx, session.TenantID, quota.Leads); err != nil {
		return nil, err
	}

	stageID, err := s.store.FirstStageID(ctx, session.TenantID)
	if err != nil {
		return nil, storeErr("first stage", "Stage", err)
	}

	lead := &models.Lead{
		Origin:           models.OriginManual,
		StageID:          stageID,
		AssignedToUserID: assignee,
		Name:             strings.TrimSpace(req.Name),
		Email:            strings.TrimSpace(req.Email),
		Phone:            strings.TrimSpace(req.Phone),
	}
	lead.TenantID = session.TenantID

	if err := s.store.CreateLead(ctx, lead); err != nil {
		return nil, storeErr("create lead", "Lead", err)
	}

	s.metrics.LeadCreated(models.OriginManual)
	log.Info().
		Str("tenant_id", session.TenantID.String()).
		Str("lead_id", lead.ID.String()).
		Str("user_id", session.UserID.String()).
		Msg("manual lead created")
	publish(ctx, s.publisher, realtime.EventLeadCreated, session.TenantID, lead)

	return lead, nil
}

func (s *LeadService) createAssignee(ctx context.Context, session *auth.Session, requested OptionalUUID) (*uuid.UUID, error) {
	if session.Role == auth.RoleSales {
		self := session.UserID
		return &self, nil
	}
	if !authz.CanSetLeadAssignment(session.Role) || !requested.Set {
		return nil, nil
	}
	return s.validateAssignee(ctx, session.TenantID, requested)
}

func (s *LeadService) validateAssignee(ctx context.Context, tenantID uuid.UUID, requested OptionalUUID) (*uuid.UUID, error) {
	if requested.Invalid {
		return nil, apperr.Validation("Invalid assignee")
	}
	if requested.Value == nil {
		return nil, nil
	}
	ok, err := s.authz.IsUserInTenant(ctx, tenantID, *requested.Value)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if !ok {
		return nil, apperr.Validation("Invalid assignee")
	}
	return requested.Value, nil
}

// Update moves a lead between stages or reassigns it. Assignment changes from
// roles that may not assign are ignored.
func (s *LeadService) Update(ctx context.Context, session *auth.Session, id uuid.UUID, req UpdateLeadRequest) (*models.Lead, error) {
	if !authz.CanWriteLeads(session.Role) {
		return nil, apperr.Forbidden("Forbidden")
	}
	d, err := s.authz.CanUpdateLead(ctx, authz.ActorFromSession(session), id)
	if err := decide(d, err, "Lead"); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.StageID.Set {
		if req.StageID.Invalid {
			return nil, apperr.Validation("Invalid stage_id")
		}
		if req.StageID.Value != nil {
			ok, err := s.store.StageInTenant(ctx, session.TenantID, *req.StageID.Value)
			if err != nil {
				return nil, storeErr("check stage", "Stage", err)
			}
			if !ok {
				return nil, apperr.Validation("Invalid stage_id")
			}
		}
		updates["stage_id"] = uuidOrNil(req.StageID.Value)
	}
	if authz.CanSetLeadAssignment(session.Role) && req.AssignedToUserID.Set {
		assignee, err := s.validateAssignee(ctx, session.TenantID, req.AssignedToUserID)
		if err != nil {
			return nil, err
		}
		updates["assigned_to_user_id"] = uuidOrNil(assignee)
	}

	lead, err := s.store.UpdateLead(ctx, session.TenantID, id, updates)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("update lead %s", id), "Lead", err)
	}
	return lead, nil
}

// Delete removes a lead after the ownership check
func (s *LeadService) Delete(ctx context.Context, session *auth.Session, id uuid.UUID) error {
	if !authz.CanWriteLeads(session.Role) {
		return apperr.Forbidden("Forbidden")
	}
	d, err := s.authz.CanDeleteLead(ctx, authz.ActorFromSession(session), id)
	if err := decide(d, err, "Lead"); err != nil {
		return err
	}

	if err := s.store.DeleteLead(ctx, session.TenantID, id); err != nil {
		return storeErr(fmt.Sprintf("delete lead %s", id), "Lead", err)
	}
	log.Info().
		Str("tenant_id", session.TenantID.String()).
		Str("lead_id", id.String()).
		Str("user_id", session.UserID.String()).
		Msg("lead deleted")
	return nil
}

// Stages lists the tenant's pipeline stages in order
func (s *LeadService) Stages(ctx context.Context, session *auth.Session) ([]models.PipelineStage, error) {
	stages, err := s.store.ListStages(ctx, session.TenantID)
	if err != nil {
		return nil, storeErr("list stages", "Stage", err)
	}
	return stages, nil
}
