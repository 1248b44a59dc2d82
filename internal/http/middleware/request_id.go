package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const requestIDKey = "request_id"

// RequestID tags each request with an id, reusing the caller's X-Request-ID
// when present, and attaches a logger carrying it to the request context.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			c.Set(requestIDKey, requestID)

			logger := log.With().Str("request_id", requestID).Logger()
			c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context())))

			return next(c)
		}
	}
}
