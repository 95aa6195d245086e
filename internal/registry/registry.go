// Package registry owns Employee membership records: who belongs to
// which organization and with what role. It answers factual queries
// only; authorization decisions live in the authz package.
package registry

import (
	"context"
	"errors"

	"capitalapi/internal/apperr"
	"capitalapi/internal/models"
	"capitalapi/internal/storage"
)

type Registry struct {
	Store storage.Store
}

func New(store storage.Store) *Registry {
	return &Registry{Store: store}
}

// RoleOf returns the user's role in the organization, or "" when the
// user is not a member. Absence is a valid, common case, not an error.
func (r *Registry) RoleOf(ctx context.Context, userID, orgID int) (models.Role, error) {
	emp, err := r.Store.Employees().ByUserOrg(ctx, userID, orgID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return emp.Role, nil
}

func (r *Registry) IsMember(ctx context.Context, userID, orgID int) (bool, error) {
	role, err := r.RoleOf(ctx, userID, orgID)
	if err != nil {
		return false, err
	}
	return role != "", nil
}

// MemberByEmail looks up a membership by the associated user's
// normalized email, scoped to one organization.
func (r *Registry) MemberByEmail(ctx context.Context, orgID int, email string) (*models.Employee, error) {
	emp, err := r.Store.Employees().ByEmailOrg(ctx, orgID, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("user is not a member of this organization")
	}
	if err != nil {
		return nil, err
	}
	return emp, nil
}

// AddMember inserts a new membership. Conflict when the (user, org)
// pair already exists. Only Admin and Viewer can be granted here; the
// founding Owner row is written by the lifecycle manager instead.
func (r *Registry) AddMember(ctx context.Context, emp *models.Employee) error {
	if !emp.Role.Assignable() {
		return apperr.Validation("role", "role must be 'Admin' or 'Viewer'")
	}
	err := r.Store.Employees().Insert(ctx, emp)
	if errors.Is(err, storage.ErrDuplicate) {
		return apperr.Conflict("user is already a member of this organization")
	}
	return err
}

// ChangeRole reassigns a membership's role. Only Admin and Viewer can
// be assigned through this path; ownership transfer is unsupported.
func (r *Registry) ChangeRole(ctx context.Context, employeeID int, newRole models.Role) error {
	if !newRole.Assignable() {
		return apperr.Validation("role", "role must be 'Admin' or 'Viewer'")
	}
	err := r.Store.Employees().UpdateRole(ctx, employeeID, newRole)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("membership does not exist")
	}
	return err
}

func (r *Registry) RemoveMember(ctx context.Context, emp *models.Employee) error {
	err := r.Store.Employees().Delete(ctx, emp.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("membership does not exist")
	}
	return err
}

func (r *Registry) ListMembers(ctx context.Context, orgID int) ([]models.Employee, error) {
	return r.Store.Employees().ListByOrg(ctx, orgID)
}
