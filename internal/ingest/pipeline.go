// Package ingest turns Meta Lead Ads and WhatsApp Cloud API webhook
// deliveries into contacts, leads and messages.
package ingest

import (
	"context"

	"leadcrm/internal/quota"
	"leadcrm/internal/realtime"
	"leadcrm/internal/telemetry"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Channel names, used for metrics and archive keys
const (
	ChannelMeta     = "meta"
	ChannelWhatsApp = "whatsapp"
)

// Store is the persistence the pipeline needs. Lookups return a nil row and
// a nil error when nothing matches. CreateContact returns an apperr Conflict
// when (tenant_id, phone) already exists.
type Store interface {
	LeadSourceTenant(ctx context.Context, origin, externalID string) (*uuid.UUID, error)
	WorkspaceTenant(ctx context.Context, phoneNumberID string) (*uuid.UUID, error)
	FirstStageID(ctx context.Context, tenantID uuid.UUID) (*uuid.UUID, error)
	FindContact(ctx context.Context, tenantID uuid.UUID, phone string) (*models.Contact, error)
	CreateContact(ctx context.Context, contact *models.Contact) error
	LatestLeadForContact(ctx context.Context, tenantID, contactID uuid.UUID) (*models.Lead, error)
	CreateLead(ctx context.Context, lead *models.Lead) error
	CreateMessage(ctx context.Context, msg *models.Message) error
}

// QuotaChecker reports whether a tenant may create another resource
type QuotaChecker interface {
	Check(ctx context.Context, tenantID uuid.UUID, resource quota.Resource) (quota.Result, error)
}

// Archiver keeps a copy of raw webhook payloads
type Archiver interface {
	Archive(ctx context.Context, channel string, tenantID uuid.UUID, payload []byte) (string, error)
}

// Config holds deployment parameters for ingestion
type Config struct {
	// VerifyToken is the WhatsApp webhook verification secret. Empty rejects
	// every verification attempt.
	VerifyToken string
	// FallbackTenantID receives WhatsApp messages for phone numbers with no
	// workspace binding. Single-tenant deployments only.
	FallbackTenantID *uuid.UUID
}

// Pipeline runs the ingestion flows
type Pipeline struct {
	store     Store
	quota     QuotaChecker
	publisher realtime.Publisher
	archiver  Archiver
	metrics   *telemetry.Metrics
	cfg       Config
}

// NewPipeline creates an ingestion pipeline. publisher and archiver may be nil.
func NewPipeline(store Store, quotas QuotaChecker, publisher realtime.Publisher, archiver Archiver, metrics *telemetry.Metrics, cfg Config) *Pipeline {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	if cfg.FallbackTenantID != nil {
		log.Warn().
			Str("tenant_id", cfg.FallbackTenantID.String()).
			Msg("WhatsApp single-tenant fallback active: unbound phone numbers route to this tenant")
	}
	if cfg.VerifyToken == "" {
		log.Warn().Msg("WHATSAPP_VERIFY_TOKEN not set, webhook verification will be rejected")
	}
	return &Pipeline{
		store:     store,
		quota:     quotas,
		publisher: publisher,
		archiver:  archiver,
		metrics:   metrics,
		cfg:       cfg,
	}
}

func (p *Pipeline) archive(ctx context.Context, channel string, tenantID uuid.UUID, body []byte) {
	if p.archiver == nil {
		return
	}
	key, err := p.archiver.Archive(ctx, channel, tenantID, body)
	if err != nil {
		log.Warn().Err(err).Str("channel", channel).Str("tenant_id", tenantID.String()).Msg("failed to archive webhook payload")
		return
	}
	log.Debug().Str("key", key).Msg("webhook payload archived")
}

func (p *Pipeline) publish(ctx context.Context, eventType string, tenantID uuid.UUID, payload interface{}) {
	event, err := realtime.NewEvent(eventType, tenantID, payload)
	if err == nil {
		err = p.publisher.Publish(ctx, event)
	}
	if err != nil {
		log.Warn().Err(err).Str("event", eventType).Str("tenant_id", tenantID.String()).Msg("failed to publish realtime event")
	}
}
