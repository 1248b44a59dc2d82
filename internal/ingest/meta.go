package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"leadcrm/internal/apperr"
	"leadcrm/internal/quota"
	"leadcrm/internal/realtime"
	"leadcrm/pkg/models"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// IngestMetaLead creates a lead from a Meta Lead Ads delivery. Deliveries
// are not deduplicated: a replayed leadgen_id creates a second lead.
func (p *Pipeline) IngestMetaLead(ctx context.Context, body []byte) (*models.Lead, error) {
	ctx, d := p.startDelivery(ctx, ChannelMeta)
	lead, err := p.ingestMetaLead(ctx, d, body)
	d.end(err)
	return lead, err
}

func (p *Pipeline) ingestMetaLead(ctx context.Context, d *delivery, body []byte) (*models.Lead, error) {
	var payload metaPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		d.outcome("invalid")
		return nil, apperr.Validation("Invalid JSON payload")
	}
	value := payload.resolved()
	if value.FormID == "" || value.PageID == "" {
		d.outcome("invalid")
		return nil, apperr.Validation("form_id or page_id missing")
	}

	externalID := string(value.PageID) + "_" + string(value.FormID)
	tenantID, err := p.store.LeadSourceTenant(ctx, models.OriginMeta, externalID)
	if err != nil {
		d.outcome("error")
		return nil, apperr.Upstream(fmt.Errorf("resolve lead source: %w", err))
	}
	if tenantID == nil {
		d.outcome("unknown_source")
		log.Warn().Str("external_id", externalID).Msg("meta lead for unregistered form")
		return nil, apperr.NotFound("No tenant configured for this form_id/page_id")
	}

	d.tenant(*tenantID)
	p.archive(ctx, ChannelMeta, *tenantID, body)

	res, err := p.quota.Check(ctx, *tenantID, quota.Leads)
	if err != nil {
		d.outcome("error")
		return nil, apperr.Upstream(err)
	}
	if !res.Allowed {
		d.outcome("quota_exceeded")
		log.Warn().
			Str("tenant_id", tenantID.String()).
			Str("leadgen_id", string(value.LeadgenID)).
			Int64("current", res.Current).
			Int64("max", res.Max).
			Msg("meta lead dropped: lead quota reached")
		return nil, apperr.QuotaExceeded("Lead limit reached for this workspace", res.Current, res.Max)
	}

	stageID, err := p.store.FirstStageID(ctx, *tenantID)
	if err != nil {
		d.outcome("error")
		return nil, apperr.Upstream(fmt.Errorf("first stage: %w", err))
	}

	lead := &models.Lead{
		Origin:  models.OriginMeta,
		StageID: stageID,
		Name:    pickField(value.FieldData, nameFields),
		Email:   pickField(value.FieldData, emailFields),
		Phone:   pickField(value.FieldData, phoneFields),
		RawData: datatypes.JSON(body),
	}
	lead.TenantID = *tenantID

	if err := p.store.CreateLead(ctx, lead); err != nil {
		d.outcome("error")
		return nil, apperr.Upstream(fmt.Errorf("create meta lead: %w", err))
	}

	d.outcome("created")
	p.metrics.LeadCreated(models.OriginMeta)
	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("lead_id", lead.ID.String()).
		Str("leadgen_id", string(value.LeadgenID)).
		Msg("meta lead created")

	p.publish(ctx, realtime.EventLeadCreated, *tenantID, lead)
	return lead, nil
}
