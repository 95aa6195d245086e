package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capitalapi/internal/models"
	"capitalapi/internal/storage"
)

func TestTransact_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Transact(ctx, func(tx storage.Store) error {
		if err := tx.Users().Insert(ctx, &models.User{Email: "a@example.com", PasswordHash: "x"}); err != nil {
			return err
		}
		if err := tx.Organizations().Insert(ctx, &models.Organization{Name: "Acme", SecretHash: "x", CreatorID: 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().ByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	exists, err := s.Organizations().ExistsName(ctx, "Acme")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTransact_CommitsAndReusesIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := &models.User{Email: "a@example.com", PasswordHash: "x"}
	require.NoError(t, s.Transact(ctx, func(tx storage.Store) error {
		return tx.Users().Insert(ctx, u)
	}))
	require.Equal(t, 1, u.ID)

	// IDs allocated inside a rolled-back transaction are not burned.
	require.Error(t, s.Transact(ctx, func(tx storage.Store) error {
		if err := tx.Users().Insert(ctx, &models.User{Email: "b@example.com"}); err != nil {
			return err
		}
		return errors.New("boom")
	}))

	u2 := &models.User{Email: "c@example.com", PasswordHash: "x"}
	require.NoError(t, s.Users().Insert(ctx, u2))
	assert.Equal(t, 2, u2.ID)
}

func TestUsers_DuplicateEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Users().Insert(ctx, &models.User{Email: "a@example.com"}))
	err := s.Users().Insert(ctx, &models.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestOrganizations_NameNormalization(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Organizations().Insert(ctx, &models.Organization{Name: "Acme"}))

	err := s.Organizations().Insert(ctx, &models.Organization{Name: " ACME "})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	org, err := s.Organizations().ByName(ctx, "  acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Name)
}

func TestEmployees_EmailJoinedFromUsers(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := &models.User{Email: "a@example.com"}
	require.NoError(t, s.Users().Insert(ctx, u))
	emp := &models.Employee{UserID: u.ID, OrganizationID: 1, Role: models.RoleViewer}
	require.NoError(t, s.Employees().Insert(ctx, emp))

	got, err := s.Employees().ByUserOrg(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)

	got, err = s.Employees().ByEmailOrg(ctx, 1, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, emp.ID, got.ID)

	list, err := s.Employees().ListByOrg(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a@example.com", list[0].Email)
}

func TestMovements_OrderAndScopedDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i, org := range []int{1, 1, 2} {
		require.NoError(t, s.Movements().Insert(ctx, &models.Movement{
			NoMov: i + 1, Title: "m", Type: models.TypeIngreso, OrganizationID: org,
		}))
	}

	require.NoError(t, s.Movements().DeleteByOrg(ctx, 1))

	count, err := s.Movements().CountByOrg(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = s.Movements().CountByOrg(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
