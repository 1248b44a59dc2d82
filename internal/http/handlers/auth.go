package handlers

import (
	"net/http"

	"leadcrm/internal/auth"
	"leadcrm/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *auth.Service
	signup      *services.SignupService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, signup *services.SignupService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		signup:      signup,
	}
}

// Login godoc
// @Summary Login user
// @Description Authenticate user and return a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body auth.LoginRequest true "Login credentials"
// @Success 200 {object} auth.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req auth.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, response)
}

// Signup godoc
// @Summary Create a company workspace
// @Description Create a tenant, its first admin and the default pipeline
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.SignupRequest true "Company and admin data"
// @Success 200 {object} services.SignupResult
// @Failure 400 {object} ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req services.SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.signup.Signup(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Session returns the caller's resolved session
func (h *AuthHandler) Session(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}
