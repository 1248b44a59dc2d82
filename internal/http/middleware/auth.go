package middleware

import (
	"strings"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"

	"github.com/labstack/echo/v4"
)

// Context keys set by SessionAuth
const (
	sessionKey  = "session"
	tenantIDKey = "tenant_id"
	userIDKey   = "user_id"
)

// SessionResolver turns a bearer token into a session
type SessionResolver interface {
	ResolveSession(token string) (*auth.Session, error)
}

// SessionAuth resolves the bearer token before any handler runs. Requests
// without a usable session stop here with 401.
func SessionAuth(resolver SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return apperr.Authentication("Unauthorized")
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				return apperr.Authentication("Invalid authorization header format")
			}

			session, err := resolver.ResolveSession(strings.TrimSpace(authHeader[7:]))
			if err != nil {
				return err
			}

			c.Set(sessionKey, session)
			c.Set(tenantIDKey, session.TenantID)
			c.Set(userIDKey, session.UserID)

			return next(c)
		}
	}
}
