package handlers

import (
	"net/http"

	"leadcrm/internal/services"

	"github.com/labstack/echo/v4"
)

// LeadHandler serves leads and pipeline stages
type LeadHandler struct {
	leads *services.LeadService
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leads *services.LeadService) *LeadHandler {
	return &LeadHandler{leads: leads}
}

// List godoc
// @Summary List leads
// @Description Newest first; sales only see leads assigned to them
// @Tags leads
// @Produce json
// @Param origin query string false "manual, meta, google or whatsapp"
// @Success 200 {array} services.LeadView
// @Security BearerAuth
// @Router /leads [get]
func (h *LeadHandler) List(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}

	leads, err := h.leads.List(c.Request().Context(), s, c.QueryParam("origin"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, leads)
}

// Create godoc
// @Summary Create lead
// @Tags leads
// @Accept json
// @Produce json
// @Param request body services.CreateLeadRequest true "Lead data"
// @Success 200 {object} models.Lead
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /leads [post]
func (h *LeadHandler) Create(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}

	var req services.CreateLeadRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	lead, err := h.leads.Create(c.Request().Context(), s, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lead)
}

// Update changes a lead's stage or assignee
func (h *LeadHandler) Update(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req services.UpdateLeadRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	lead, err := h.leads.Update(c.Request().Context(), s, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lead)
}

// Delete removes a lead
func (h *LeadHandler) Delete(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.leads.Delete(c.Request().Context(), s, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Stages lists the tenant's pipeline stages by order
func (h *LeadHandler) Stages(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}

	stages, err := h.leads.Stages(c.Request().Context(), s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stages)
}
