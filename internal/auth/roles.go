package auth

// Role represents a caller role for role-based access control
type Role string

const (
	// RoleAdmin has access to every endpoint
	RoleAdmin Role = "admin"

	// RoleViewer may read configuration and usage analytics
	RoleViewer Role = "viewer"

	// RoleService may dispatch chat requests on behalf of a module
	RoleService Role = "service"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleViewer, RoleService:
		return true
	default:
		return false
	}
}

// HasPermission checks if a role has permission for a required role.
// Admin has all permissions.
func (r Role) HasPermission(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

// HasAny reports whether any of roles grants one of the required roles
func HasAny(roles []Role, required ...Role) bool {
	for _, want := range required {
		for _, have := range roles {
			if have.HasPermission(want) {
				return true
			}
		}
	}
	return false
}
