package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"leadcrm/internal/apperr"
	"leadcrm/internal/quota"
	"leadcrm/internal/realtime"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

const subscribeMode = "subscribe"

// VerifyWhatsApp answers the provider's subscription handshake. challenge is
// nil when the query parameter is absent.
func (p *Pipeline) VerifyWhatsApp(mode, token string, challenge *string) (string, error) {
	if mode != subscribeMode {
		return "", apperr.Validation("Invalid mode")
	}
	if p.cfg.VerifyToken == "" || token != p.cfg.VerifyToken {
		return "", apperr.Forbidden("Invalid verify token")
	}
	if challenge == nil {
		return "", apperr.Validation("Missing challenge")
	}
	return *challenge, nil
}

// WhatsAppResult describes what an inbound delivery produced
type WhatsAppResult struct {
	Ignored     bool
	TenantID    uuid.UUID
	ContactID   *uuid.UUID
	LeadID      *uuid.UUID
	LeadCreated bool
	MessageID   uuid.UUID
	// Dropped counts messages after the first that were not stored
	Dropped int
}

// IngestWhatsApp records the first inbound message of a delivery. Payloads
// whose change field is not "messages" are acknowledged and ignored.
func (p *Pipeline) IngestWhatsApp(ctx context.Context, body []byte) (*WhatsAppResult, error) {
	ctx, d := p.startDelivery(ctx, ChannelWhatsApp)
	result, err := p.ingestWhatsApp(ctx, d, body)
	d.end(err)
	return result, err
}

func (p *Pipeline) ingestWhatsApp(ctx context.Context, d *delivery, body []byte) (*WhatsAppResult, error) {
	var payload whatsappPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		d.outcome("invalid")
		return nil, apperr.Validation("Invalid JSON payload")
	}

	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 || payload.Entry[0].Changes[0].Field != "messages" {
		d.outcome("ignored")
		return &WhatsAppResult{Ignored: true}, nil
	}
	value := payload.Entry[0].Changes[0].Value

	phoneNumberID := value.Metadata.PhoneNumberID
	if phoneNumberID == "" || len(value.Messages) == 0 {
		d.outcome("invalid")
		return nil, apperr.Validation("Missing metadata or messages")
	}

	tenantID, err := p.resolveWhatsAppTenant(ctx, phoneNumberID)
	if err != nil {
		d.outcome("error")
		return nil, apperr.Upstream(err)
	}
	if tenantID == nil {
		d.outcome("unknown_tenant")
		log.Warn().Str("phone_number_id", phoneNumberID).Msg("whatsapp message for unbound number")
		return nil, apperr.NotFound("No tenant configured for this WhatsApp number")
	}

	d.tenant(*tenantID)
	p.archive(ctx, ChannelWhatsApp, *tenantID, body)

	result := &WhatsAppResult{TenantID: *tenantID, Dropped: len(value.Messages) - 1}
	if result.Dropped > 0 {
		log.Warn().
			Str("tenant_id", tenantID.String()).
			Int("dropped", result.Dropped).
			Msg("whatsapp batch truncated to its first message")
	}

	first := value.Messages[0]
	fromPhone := strings.TrimSpace(first.From)
	phone := NormalizePhone(fromPhone)
	if phone == "" {
		d.outcome("invalid")
		return nil, apperr.Validation("Invalid sender phone")
	}

	var contactName string
	if len(value.Contacts) > 0 {
		contactName = value.Contacts[0].Profile.Name
	}

	contact, err := p.resolveContact(ctx, *tenantID, phone, contactName)
	if err != nil {
		d.outcome("error")
		return nil, apperr.Upstream(err)
	}
	if contact != nil {
		result.ContactID = &contact.ID
	}

	// Always computed, even when an existing lead will be reused.
	quotaRes, err := p.quota.Check(ctx, *tenantID, quota.Leads)
	if err != nil {
		d.outcome("error")
		return nil, apperr.Upstream(err)
	}

	if contact != nil {
		lead, created, err := p.resolveLead(ctx, *tenantID, contact, contactName, fromPhone, body, quotaRes)
		if err != nil {
			d.outcome("error")
			return nil, apperr.Upstream(err)
		}
		if lead != nil {
			result.LeadID = &lead.ID
			result.LeadCreated = created
		}
	}

	msg := &models.Message{
		LeadID:  result.LeadID,
		Content: first.content(),
		Type:    models.MessageInbound,
		IsRead:  false,
	}
	msg.TenantID = *tenantID
	if err := p.store.CreateMessage(ctx, msg); err != nil {
		d.outcome("error")
		return nil, apperr.Upstream(fmt.Errorf("create message: %w", err))
	}
	result.MessageID = msg.ID

	if result.LeadID == nil {
		d.outcome("orphaned")
		log.Warn().
			Str("tenant_id", tenantID.String()).
			Str("message_id", msg.ID.String()).
			Msg("whatsapp message stored without a lead")
	} else {
		d.outcome("stored")
	}
	p.publish(ctx, realtime.EventMessageCreated, *tenantID, msg)

	return result, nil
}

func (p *Pipeline) resolveWhatsAppTenant(ctx context.Context, phoneNumberID string) (*uuid.UUID, error) {
	tenantID, err := p.store.WorkspaceTenant(ctx, phoneNumberID)
	if err != nil {
		return nil, fmt.Errorf("resolve whatsapp workspace: %w", err)
	}
	if tenantID != nil {
		return tenantID, nil
	}
	if p.cfg.FallbackTenantID != nil {
		log.Info().
			Str("phone_number_id", phoneNumberID).
			Str("tenant_id", p.cfg.FallbackTenantID.String()).
			Msg("whatsapp number unbound, using fallback tenant")
		id := *p.cfg.FallbackTenantID
		return &id, nil
	}
	return nil, nil
}

// resolveContact looks the contact up and creates it on a miss. A unique
// violation means a concurrent delivery created it first, so the winning row
// is read back instead of failing.
func (p *Pipeline) resolveContact(ctx context.Context, tenantID uuid.UUID, phone, name string) (*models.Contact, error) {
	contact, err := p.store.FindContact(ctx, tenantID, phone)
	if err != nil {
		return nil, fmt.Errorf("find contact: %w", err)
	}
	if contact != nil {
		return contact, nil
	}

	contact = &models.Contact{Phone: phone, Name: name}
	contact.TenantID = tenantID
	err = p.store.CreateContact(ctx, contact)
	if err == nil {
		return contact, nil
	}
	if !apperr.Is(err, apperr.KindConflict) {
		return nil, fmt.Errorf("create contact: %w", err)
	}

	contact, err = p.store.FindContact(ctx, tenantID, phone)
	if err != nil {
		return nil, fmt.Errorf("re-read contact: %w", err)
	}
	return contact, nil
}

// resolveLead reuses the contact's most recent lead or creates one when the
// quota allows. A failed lead insert leaves the message orphaned rather than
// failing the delivery.
func (p *Pipeline) resolveLead(ctx context.Context, tenantID uuid.UUID, contact *models.Contact, name, fromPhone string, body []byte, quotaRes quota.Result) (*models.Lead, bool, error) {
	lead, err := p.store.LatestLeadForContact(ctx, tenantID, contact.ID)
	if err != nil {
		return nil, false, fmt.Errorf("latest lead: %w", err)
	}
	if lead != nil {
		return lead, false, nil
	}
	if !quotaRes.Allowed {
		log.Warn().
			Str("tenant_id", tenantID.String()).
			Int64("current", quotaRes.Current).
			Int64("max", quotaRes.Max).
			Msg("whatsapp lead not created: lead quota reached")
		return nil, false, nil
	}

	stageID, err := p.store.FirstStageID(ctx, tenantID)
	if err != nil {
		return nil, false, fmt.Errorf("first stage: %w", err)
	}

	contactID := contact.ID
	lead = &models.Lead{
		ContactID: &contactID,
		Origin:    models.OriginWhatsApp,
		StageID:   stageID,
		Name:      name,
		Phone:     fromPhone,
		RawData:   datatypes.JSON(body),
	}
	lead.TenantID = tenantID
	if err := p.store.CreateLead(ctx, lead); err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("failed to create whatsapp lead")
		return nil, false, nil
	}

	p.metrics.LeadCreated(models.OriginWhatsApp)
	p.publish(ctx, realtime.EventLeadCreated, tenantID, lead)
	return lead, true, nil
}
