package handlers

import (
	"net/http"

	"leadcrm/internal/services"

	"github.com/labstack/echo/v4"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboard *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Summary godoc
// @Summary Dashboard summary
// @Description Lead totals, per-stage counts, a 14 day creation series and the latest leads
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.DashboardSummary
// @Security BearerAuth
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}

	summary, err := h.dashboard.Summary(c.Request().Context(), s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
