package models

// Organization is a named shared ledger with its own membership and
// movement records. SecretHash is an organization-level secret,
// independent of user credentials. CreatorID is historical metadata:
// authorization always goes through Employee.Role, never this field.
type Organization struct {
	ID         int    `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	SecretHash string `json:"-" db:"secret_hash"`
	CreatorID  int    `json:"creator_id" db:"creator_id"`
}

// Employee binds one user to one organization with a role.
// At most one row exists per (user, organization) pair.
type Employee struct {
	ID             int    `json:"id" db:"id"`
	UserID         int    `json:"user_id" db:"user_id"`
	OrganizationID int    `json:"organization_id" db:"organization_id"`
	Role           Role   `json:"role" db:"role"`
	Email          string `json:"email,omitempty" db:"-"` // joined from users on reads
}

// MemberOrganization is an organization together with the role the
// querying user holds in it.
type MemberOrganization struct {
	Organization
	Role Role `json:"role"`
}
