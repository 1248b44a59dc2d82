package handlers

import (
	"io"
	"net/http"

	"leadcrm/internal/apperr"
	"leadcrm/internal/ingest"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// maxWebhookBody caps the payload read from providers
const maxWebhookBody = 1 << 20

// WebhookHandler receives provider deliveries. These routes carry no
// session; the tenant is resolved from the payload.
type WebhookHandler struct {
	pipeline *ingest.Pipeline
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(pipeline *ingest.Pipeline) *WebhookHandler {
	return &WebhookHandler{pipeline: pipeline}
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		return nil, apperr.Validation("Invalid request")
	}
	if len(body) > maxWebhookBody {
		return nil, apperr.Validation("Payload too large")
	}
	return body, nil
}

// MetaPing answers Meta's verification ping
func (h *WebhookHandler) MetaPing(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// MetaLead godoc
// @Summary Meta Lead Ads delivery
// @Description Resolves the tenant by page_id and form_id and creates a lead
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /webhooks/meta/leads [post]
func (h *WebhookHandler) MetaLead(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}

	lead, err := h.pipeline.IngestMetaLead(c.Request().Context(), body)
	if err != nil {
		return err
	}

	log.Info().
		Str("tenant_id", lead.TenantID.String()).
		Str("lead_id", lead.ID.String()).
		Msg("meta lead ingested")
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// VerifyWhatsApp echoes hub.challenge when hub.mode and hub.verify_token match
func (h *WebhookHandler) VerifyWhatsApp(c echo.Context) error {
	var challenge *string
	if values, ok := c.QueryParams()["hub.challenge"]; ok && len(values) > 0 {
		challenge = &values[0]
	}

	reply, err := h.pipeline.VerifyWhatsApp(c.QueryParam("hub.mode"), c.QueryParam("hub.verify_token"), challenge)
	if err != nil {
		return err
	}
	return c.String(http.StatusOK, reply)
}

// WhatsAppMessage records an inbound WhatsApp message
func (h *WebhookHandler) WhatsAppMessage(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}

	result, err := h.pipeline.IngestWhatsApp(c.Request().Context(), body)
	if err != nil {
		return err
	}

	if !result.Ignored {
		event := log.Info().
			Str("tenant_id", result.TenantID.String()).
			Str("message_id", result.MessageID.String()).
			Bool("lead_created", result.LeadCreated)
		if result.LeadID != nil {
			event = event.Str("lead_id", result.LeadID.String())
		}
		event.Msg("whatsapp message ingested")
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
