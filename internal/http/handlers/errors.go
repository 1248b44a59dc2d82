package handlers

import (
	"errors"
	"net/http"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"
	"leadcrm/internal/http/middleware"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const genericError = "An error occurred"

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Current *int64 `json:"current,omitempty"`
	Max     *int64 `json:"max,omitempty"`
}

// ErrorHandler renders apperr and echo errors as {"error": "..."}. Server
// side failures are logged with their cause and reach the client as a
// generic message.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := renderError(err)
	if status >= http.StatusInternalServerError {
		middleware.Logger(c).Error().Err(err).
			Str("method", c.Request().Method).
			Str("route", c.Path()).
			Msg("request failed")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		middleware.Logger(c).Error().Err(writeErr).Msg("failed to write error response")
	}
}

func renderError(err error) (int, ErrorResponse) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status := apperr.HTTPStatus(appErr.Kind)
		if status >= http.StatusInternalServerError {
			return status, ErrorResponse{Error: genericError}
		}
		body := ErrorResponse{Error: appErr.Message}
		if appErr.Kind == apperr.KindQuotaExceeded {
			body.Current = &appErr.Current
			body.Max = &appErr.Max
		}
		return status, body
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Code >= http.StatusInternalServerError {
			return httpErr.Code, ErrorResponse{Error: genericError}
		}
		msg, ok := httpErr.Message.(string)
		if !ok || msg == "" {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, ErrorResponse{Error: msg}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: genericError}
}

// pathID parses a uuid path parameter before any store lookup
func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid id")
	}
	return id, nil
}

// bind decodes and validates a JSON body
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("Invalid JSON")
	}
	return c.Validate(req)
}

// session returns the caller resolved by SessionAuth
func session(c echo.Context) (*auth.Session, error) {
	s := middleware.SessionFrom(c)
	if s == nil {
		return nil, apperr.Authentication("Unauthorized")
	}
	return s, nil
}
