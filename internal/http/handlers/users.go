package handlers

import (
	"net/http"

	"leadcrm/internal/services"

	"github.com/labstack/echo/v4"
)

// UserHandler handles tenant member management
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List returns {"users": [...]}. Roles without user management see an
// empty list.
func (h *UserHandler) List(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}

	users, err := h.users.List(c.Request().Context(), s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"users": users})
}

// Create godoc
// @Summary Create tenant member
// @Tags users
// @Accept json
// @Produce json
// @Param request body services.CreateUserRequest true "Member data"
// @Success 200 {object} services.UserView
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}

	var req services.CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.Create(c.Request().Context(), s, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Update changes a member's name or role
func (h *UserHandler) Update(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req services.UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.Update(c.Request().Context(), s, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
