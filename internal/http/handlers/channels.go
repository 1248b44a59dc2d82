package handlers

import (
	"net/http"

	"leadcrm/internal/services"

	"github.com/labstack/echo/v4"
)

// ChannelHandler manages the bindings that route webhooks to a tenant:
// Meta lead sources and WhatsApp workspaces.
type ChannelHandler struct {
	channels *services.ChannelService
}

// NewChannelHandler creates a new channel handler
func NewChannelHandler(channels *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

func (h *ChannelHandler) ListLeadSources(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}

	sources, err := h.channels.ListLeadSources(c.Request().Context(), s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sources)
}

func (h *ChannelHandler) CreateLeadSource(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}

	var req services.CreateLeadSourceRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	source, err := h.channels.CreateLeadSource(c.Request().Context(), s, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, source)
}

func (h *ChannelHandler) ListWorkspaces(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}

	workspaces, err := h.channels.ListWorkspaces(c.Request().Context(), s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workspaces)
}

func (h *ChannelHandler) CreateWorkspace(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}

	var req services.CreateWorkspaceRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	workspace, err := h.channels.CreateWorkspace(c.Request().Context(), s, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workspace)
}

// DeleteWorkspace unbinds a phone number. Unknown ids are 404.
func (h *ChannelHandler) DeleteWorkspace(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.channels.DeleteWorkspace(c.Request().Context(), s, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"deleted": true})
}
