package auth

// Role is one of the five CRM roles
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleSales    Role = "sales"
	RoleSupport  Role = "support"
	RoleReadonly Role = "readonly"
)

// legacyRoleSales is the Spanish role name still present in older user rows.
const legacyRoleSales = "ventas"

// NormalizeRole maps a stored role string onto a Role. The second result is
// false for empty or unrecognized values.
func NormalizeRole(raw string) (Role, bool) {
	switch raw {
	case legacyRoleSales:
		return RoleSales, true
	case string(RoleAdmin), string(RoleManager), string(RoleSales), string(RoleSupport), string(RoleReadonly):
		return Role(raw), true
	}
	return "", false
}

// AssignableRoles are the roles an admin may grant through user creation.
var AssignableRoles = []Role{RoleManager, RoleSales, RoleSupport, RoleReadonly}

// IsAssignable reports whether r can be set by user creation
func (r Role) IsAssignable() bool {
	for _, a := range AssignableRoles {
		if r == a {
			return true
		}
	}
	return false
}
