package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"
	"leadcrm/internal/repo"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// defaultStages seeds every new tenant's pipeline. The last two are closed.
var defaultStages = []struct {
	name     string
	terminal bool
}{
	{"Prospecting", false},
	{"Qualification", false},
	{"Proposal", false},
	{"Negotiation", false},
	{"Won", true},
	{"Lost", true},
}

// SignupService provisions new tenants
type SignupService struct {
	store      *repo.Store
	identities auth.IdentityProvider
}

// NewSignupService creates a new signup service
func NewSignupService(store *repo.Store, identities auth.IdentityProvider) *SignupService {
	return &SignupService{store: store, identities: identities}
}

// SignupRequest is the body of a self-service signup
type SignupRequest struct {
	CompanyName string `json:"companyName" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	Name        string `json:"name" validate:"max=200"`
}

// SignupResult identifies what signup created
type SignupResult struct {
	TenantID uuid.UUID `json:"tenant_id"`
	UserID   uuid.UUID `json:"user_id"`
	Slug     string    `json:"slug"`
}

// Signup creates a tenant, its first admin and the default pipeline. Any
// failure after the tenant insert removes what was already created.
func (s *SignupService) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	companyName := strings.TrimSpace(req.CompanyName)
	email := strings.TrimSpace(req.Email)
	if companyName == "" || email == "" || req.Password == "" {
		return nil, apperr.Validation("Company name, email and password are required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = email
	}

	slug := Slugify(companyName)
	taken, err := s.store.SlugExists(ctx, slug)
	if err != nil {
		return nil, storeErr("check slug", "Tenant", err)
	}
	if taken {
		return nil, apperr.Validation("A company with a very similar name already exists")
	}

	tenant := &models.Tenant{Name: companyName, Slug: slug}
	if err := s.store.CreateTenant(ctx, tenant); err != nil {
		return nil, storeErr("create tenant", "Tenant", err)
	}

	userID, err := s.identities.CreateUser(ctx, email, req.Password, true)
	if err != nil {
		s.rollback(ctx, tenant.ID, nil)
		if errors.Is(err, auth.ErrEmailTaken) {
			return nil, apperr.Validation("Email already registered")
		}
		return nil, apperr.Upstream(fmt.Errorf("create identity: %w", err))
	}

	user := &models.User{
		TenantID: tenant.ID,
		Email:    strings.ToLower(email),
		Name:     name,
		Role:     string(auth.RoleAdmin),
	}
	user.ID = userID
	if err := s.store.CreateUser(ctx, user); err != nil {
		s.rollback(ctx, tenant.ID, &userID)
		return nil, storeErr("create admin user", "User", err)
	}

	stages := make([]models.PipelineStage, 0, len(defaultStages))
	for i, st := range defaultStages {
		stage := models.PipelineStage{Name: st.name, Order: i, IsTerminal: st.terminal}
		stage.TenantID = tenant.ID
		stages = append(stages, stage)
	}
	if err := s.store.CreateStages(ctx, stages); err != nil {
		s.rollback(ctx, tenant.ID, &userID)
		return nil, storeErr("seed pipeline stages", "Stage", err)
	}

	log.Info().
		Str("tenant_id", tenant.ID.String()).
		Str("slug", slug).
		Str("user_id", userID.String()).
		Msg("tenant signed up")

	return &SignupResult{TenantID: tenant.ID, UserID: userID, Slug: slug}, nil
}

func (s *SignupService) rollback(ctx context.Context, tenantID uuid.UUID, identityID *uuid.UUID) {
	if identityID != nil {
		if err := s.identities.DeleteUser(ctx, *identityID); err != nil {
			log.Error().Err(err).Str("user_id", identityID.String()).Msg("signup rollback: failed to delete identity")
		}
	}
	if err := s.store.DeleteTenant(ctx, tenantID); err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("signup rollback: failed to delete tenant")
	}
}
