package models

// Role is the membership role of a user within one organization.
// The set is closed: every permission decision switches over these three.
type Role string

const (
	RoleOwner  Role = "Owner"
	RoleAdmin  Role = "Admin"
	RoleViewer Role = "Viewer"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleViewer:
		return true
	}
	return false
}

// Assignable reports whether r may be granted through member add/update.
// Owner is only ever created together with the organization itself.
func (r Role) Assignable() bool {
	return r == RoleAdmin || r == RoleViewer
}
