package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SyncStatusReporter reports the state of a background loop
type SyncStatusReporter interface {
	GetSyncStatus() map[string]interface{}
}

// HealthHandler answers liveness checks
type HealthHandler struct {
	usageSync SyncStatusReporter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(usageSync SyncStatusReporter) *HealthHandler {
	return &HealthHandler{usageSync: usageSync}
}

// Check godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Check(c echo.Context) error {
	resp := map[string]interface{}{"status": "ok"}
	if h.usageSync != nil {
		resp["usage_sync"] = h.usageSync.GetSyncStatus()
	}
	return c.JSON(http.StatusOK, resp)
}
