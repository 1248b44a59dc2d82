package handlers

import (
	"net/http"

	"leadcrm/internal/http/middleware"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RealtimeServer streams a tenant's events over a WebSocket
type RealtimeServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) error
}

// WebSocketHandler authenticates through the token query parameter since
// browsers cannot set headers on the upgrade request.
type WebSocketHandler struct {
	resolver middleware.SessionResolver
	hub      RealtimeServer
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(resolver middleware.SessionResolver, hub RealtimeServer) *WebSocketHandler {
	return &WebSocketHandler{resolver: resolver, hub: hub}
}

// HandleWebSocket upgrades the connection for the token's tenant
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	s, err := h.resolver.ResolveSession(c.QueryParam("token"))
	if err != nil {
		return err
	}

	if err := h.hub.ServeWS(c.Response(), c.Request(), s.TenantID); err != nil {
		// the upgrader has already answered the client
		middleware.Logger(c).Warn().Err(err).Str("tenant_id", s.TenantID.String()).Msg("websocket upgrade failed")
	}
	return nil
}
