// Package orgs is the organization lifecycle manager: creation with
// the founding Owner membership, the delete cascades, and the
// organization-level secret. Every multi-step mutation runs inside a
// single storage transaction; there are no partially applied cascades.
package orgs

import (
	"context"
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"capitalapi/internal/apperr"
	"capitalapi/internal/authz"
	"capitalapi/internal/models"
	"capitalapi/internal/storage"
)

type Manager struct {
	Store storage.Store
	Authz *authz.Engine
}

func New(store storage.Store, az *authz.Engine) *Manager {
	return &Manager{Store: store, Authz: az}
}

// Mine lists the organizations the user owns.
func (m *Manager) Mine(ctx context.Context, userID int) ([]models.MemberOrganization, error) {
	return m.listByRole(ctx, userID, true)
}

// Affiliated lists the organizations the user belongs to without
// owning them.
func (m *Manager) Affiliated(ctx context.Context, userID int) ([]models.MemberOrganization, error) {
	return m.listByRole(ctx, userID, false)
}

func (m *Manager) listByRole(ctx context.Context, userID int, owner bool) ([]models.MemberOrganization, error) {
	all, err := m.Store.Organizations().ListForMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []models.MemberOrganization{}
	for _, org := range all {
		if (org.Role == models.RoleOwner) == owner {
			out = append(out, org)
		}
	}
	return out, nil
}

// Create validates and persists a new organization and the creator's
// Owner membership as one transaction: either both rows exist
// afterwards or neither does.
func (m *Manager) Create(ctx context.Context, name, secret string, creatorID int) (*models.Organization, error) {
	if name == "" {
		return nil, apperr.Validation("name", "name is required")
	}
	if utf8.RuneCountInString(name) > 150 {
		return nil, apperr.Validation("name", "name must not exceed 150 characters")
	}
	if secret == "" {
		return nil, apperr.Validation("secret", "secret is required")
	}
	if len(secret) < 8 {
		return nil, apperr.Validation("secret", "secret must be at least 8 characters")
	}
	exists, err := m.Store.Organizations().ExistsName(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("organization name is already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	org := &models.Organization{Name: name, SecretHash: string(hash), CreatorID: creatorID}
	err = m.Store.Transact(ctx, func(s storage.Store) error {
		if err := s.Organizations().Insert(ctx, org); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return apperr.Conflict("organization name is already in use")
			}
			return err
		}
		owner := &models.Employee{
			UserID:         creatorID,
			OrganizationID: org.ID,
			Role:           models.RoleOwner,
		}
		if err := s.Employees().Insert(ctx, owner); err != nil {
			return apperr.Integrity("creating founding owner membership", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

// Login verifies the organization-level secret and that the caller is
// a member. Name lookup and secret mismatch report the same reason.
func (m *Manager) Login(ctx context.Context, name, secret string, callerID int) (*models.Organization, error) {
	if name == "" || secret == "" {
		return nil, apperr.Validation("name", "name and secret are required")
	}
	org, err := m.Store.Organizations().ByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Denied("organization name or secret is incorrect")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(org.SecretHash), []byte(secret)) != nil {
		return nil, apperr.Denied("organization name or secret is incorrect")
	}
	if err := m.Authz.Authorize(ctx, callerID, org.ID, authz.OpViewMembers); err != nil {
		return nil, err
	}
	return org, nil
}

// UpdateSecret rotates the organization secret. Owner only; the
// permission check runs before input validation.
func (m *Manager) UpdateSecret(ctx context.Context, orgID int, newSecret string, callerID int) error {
	if _, err := m.get(ctx, orgID); err != nil {
		return err
	}
	if err := m.Authz.Authorize(ctx, callerID, orgID, authz.OpUpdateOrganizationSecret); err != nil {
		return err
	}
	if newSecret == "" {
		return apperr.Validation("secret", "new secret is required")
	}
	if len(newSecret) < 8 {
		return apperr.Validation("secret", "new secret must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newSecret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return m.Store.Organizations().UpdateSecret(ctx, orgID, string(hash))
}

// Delete removes the organization and everything scoped to it:
// memberships first, then movements, then the organization row, all
// in one transaction.
func (m *Manager) Delete(ctx context.Context, orgID, callerID int) error {
	if _, err := m.get(ctx, orgID); err != nil {
		return err
	}
	if err := m.Authz.Authorize(ctx, callerID, orgID, authz.OpDeleteOrganization); err != nil {
		return err
	}
	return m.Store.Transact(ctx, func(s storage.Store) error {
		return cascade(ctx, s, orgID)
	})
}

// DeleteUserAccount unwinds everything the user touches: each owned
// organization is cascaded away, non-owner memberships are removed,
// and finally the user row itself. One transaction end to end.
func (m *Manager) DeleteUserAccount(ctx context.Context, userID int) error {
	if _, err := m.Store.Users().ByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("user does not exist")
		}
		return err
	}

	return m.Store.Transact(ctx, func(s storage.Store) error {
		memberships, err := s.Organizations().ListForMember(ctx, userID)
		if err != nil {
			return err
		}
		for _, org := range memberships {
			if org.Role != models.RoleOwner {
				continue
			}
			if err := cascade(ctx, s, org.ID); err != nil {
				return err
			}
		}
		// Remaining rows are non-owner memberships in other
		// people's organizations.
		leftover, err := s.Employees().ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, emp := range leftover {
			if err := s.Employees().Delete(ctx, emp.ID); err != nil {
				return apperr.Integrity("removing membership", err)
			}
		}
		if err := s.Users().Delete(ctx, userID); err != nil {
			return apperr.Integrity("deleting user", err)
		}
		return nil
	})
}

func (m *Manager) get(ctx context.Context, orgID int) (*models.Organization, error) {
	org, err := m.Store.Organizations().ByID(ctx, orgID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("organization does not exist")
	}
	if err != nil {
		return nil, err
	}
	return org, nil
}

// cascade removes an organization and its dependents inside an
// already-open transaction. The storage layer carries no FK cascades,
// so the order here is the protocol.
func cascade(ctx context.Context, s storage.Store, orgID int) error {
	if err := s.Employees().DeleteByOrg(ctx, orgID); err != nil {
		return apperr.Integrity("deleting organization memberships", err)
	}
	if err := s.Movements().DeleteByOrg(ctx, orgID); err != nil {
		return apperr.Integrity("deleting organization movements", err)
	}
	if err := s.Organizations().Delete(ctx, orgID); err != nil {
		return apperr.Integrity("deleting organization", err)
	}
	return nil
}
