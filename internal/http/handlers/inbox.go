package handlers

import (
	"net/http"

	"leadcrm/internal/services"

	"github.com/labstack/echo/v4"
)

// InboxHandler serves conversation threads grouped by lead
type InboxHandler struct {
	inbox *services.InboxService
}

// NewInboxHandler creates a new inbox handler
func NewInboxHandler(inbox *services.InboxService) *InboxHandler {
	return &InboxHandler{inbox: inbox}
}

// Conversations lists leads with messages, most recent activity first
func (h *InboxHandler) Conversations(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}

	conversations, err := h.inbox.Conversations(c.Request().Context(), s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"conversations": conversations})
}

// Messages returns a lead's thread, oldest first
func (h *InboxHandler) Messages(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	leadID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	messages, err := h.inbox.Messages(c.Request().Context(), s, leadID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": messages})
}

// MarkRead flags every message of a lead as read
func (h *InboxHandler) MarkRead(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	leadID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if _, err := h.inbox.MarkRead(c.Request().Context(), s, leadID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"updated": true})
}

// UpdateMessage sets a single message's read flag. A missing or non-boolean
// is_read marks it unread.
func (h *InboxHandler) UpdateMessage(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		IsRead bool `json:"is_read"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.inbox.SetMessageRead(c.Request().Context(), s, id, req.IsRead); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"updated": true})
}
