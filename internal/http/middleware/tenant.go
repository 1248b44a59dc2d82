package middleware

import (
	"leadcrm/internal/auth"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SessionFrom returns the session stored by SessionAuth, or nil on routes
// that do not require one.
func SessionFrom(c echo.Context) *auth.Session {
	session, _ := c.Get(sessionKey).(*auth.Session)
	return session
}

// TenantFrom returns the caller's tenant id when a session exists
func TenantFrom(c echo.Context) (uuid.UUID, bool) {
	tenantID, ok := c.Get(tenantIDKey).(uuid.UUID)
	return tenantID, ok && tenantID != uuid.Nil
}
