package auth

import (
	"github.com/google/uuid"
)

// Session is the normalized identity of an authenticated caller
type Session struct {
	UserID     uuid.UUID `json:"user_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	TenantName string    `json:"tenant_name"`
	Role       Role      `json:"role"`
}

// sessionFromClaims builds a Session, returning false when the payload is
// authenticated but unusable: missing ids or an unknown role.
func sessionFromClaims(c *TokenClaims) (*Session, bool) {
	userID, err := uuid.Parse(c.UserID)
	if err != nil || userID == uuid.Nil {
		return nil, false
	}
	tenantID, err := uuid.Parse(c.TenantID)
	if err != nil || tenantID == uuid.Nil {
		return nil, false
	}
	role, ok := NormalizeRole(c.Role)
	if !ok {
		return nil, false
	}
	return &Session{
		UserID:     userID,
		TenantID:   tenantID,
		TenantName: c.TenantName,
		Role:       role,
	}, true
}
