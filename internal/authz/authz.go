// Package authz is the permission engine: a deterministic,
// side-effect-free decision function from (caller, organization,
// operation) to allow or deny. The operation-to-role mapping is a
// fixed table, not a policy language.
package authz

import (
	"context"
	"fmt"

	"capitalapi/internal/apperr"
	"capitalapi/internal/models"
)

// Operation enumerates everything the engine can be asked about.
type Operation int

const (
	OpViewMembers Operation = iota
	OpAddMember
	OpChangeMemberRole
	OpRemoveMember
	OpViewMovements
	OpWriteMovement
	OpDeleteMovement
	OpDeleteAllMovements
	OpUpdateOrganizationSecret
	OpDeleteOrganization
	OpChat
)

func (op Operation) String() string {
	switch op {
	case OpViewMembers:
		return "view members"
	case OpAddMember:
		return "add members"
	case OpChangeMemberRole:
		return "change member roles"
	case OpRemoveMember:
		return "remove members"
	case OpViewMovements:
		return "view movements"
	case OpWriteMovement:
		return "create or update movements"
	case OpDeleteMovement:
		return "delete movements"
	case OpDeleteAllMovements:
		return "delete all movements"
	case OpUpdateOrganizationSecret:
		return "update the organization secret"
	case OpDeleteOrganization:
		return "delete the organization"
	case OpChat:
		return "use the organization chat"
	}
	return "unknown operation"
}

var anyMember = []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleViewer}

// required maps each operation to the roles allowed to perform it.
var required = map[Operation][]models.Role{
	OpViewMembers:              anyMember,
	OpAddMember:                {models.RoleOwner},
	OpChangeMemberRole:         {models.RoleOwner},
	OpRemoveMember:             {models.RoleOwner},
	OpViewMovements:            anyMember,
	OpWriteMovement:            {models.RoleOwner, models.RoleAdmin},
	OpDeleteMovement:           {models.RoleOwner, models.RoleAdmin},
	OpDeleteAllMovements:       {models.RoleOwner},
	OpUpdateOrganizationSecret: {models.RoleOwner},
	OpDeleteOrganization:       {models.RoleOwner},
	OpChat:                     anyMember,
}

// RoleSource answers role lookups; implemented by registry.Registry.
type RoleSource interface {
	RoleOf(ctx context.Context, userID, orgID int) (models.Role, error)
}

type Engine struct {
	Roles RoleSource
}

func New(roles RoleSource) *Engine {
	return &Engine{Roles: roles}
}

// Authorize allows the operation or returns a Denied error with the
// reason. Non-members are always denied.
func (e *Engine) Authorize(ctx context.Context, callerID, orgID int, op Operation) error {
	role, err := e.Roles.RoleOf(ctx, callerID, orgID)
	if err != nil {
		return err
	}
	if role == "" {
		return apperr.Denied("not a member of this organization")
	}
	for _, allowed := range required[op] {
		if role == allowed {
			return nil
		}
	}
	return apperr.Denied(fmt.Sprintf("role %s may not %s", role, op))
}

// AuthorizeTarget is Authorize plus the self-targeting rule: removing
// or re-roling your own membership is denied regardless of role.
func (e *Engine) AuthorizeTarget(ctx context.Context, callerID, orgID int, op Operation, targetUserID int) error {
	if targetUserID == callerID && (op == OpRemoveMember || op == OpChangeMemberRole) {
		if op == OpRemoveMember {
			return apperr.Denied("cannot remove your own membership")
		}
		return apperr.Denied("cannot change your own role")
	}
	return e.Authorize(ctx, callerID, orgID, op)
}
