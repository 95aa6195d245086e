package orgs

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"capitalapi/internal/apperr"
	"capitalapi/internal/authz"
	"capitalapi/internal/ledger"
	"capitalapi/internal/models"
	"capitalapi/internal/registry"
	"capitalapi/internal/storage"
	"capitalapi/internal/storage/memory"
)

type env struct {
	store    *memory.Store
	registry *registry.Registry
	authz    *authz.Engine
	manager  *Manager
	ledger   *ledger.Engine
}

func newEnv() *env {
	store := memory.New()
	reg := registry.New(store)
	az := authz.New(reg)
	return &env{
		store:    store,
		registry: reg,
		authz:    az,
		manager:  New(store, az),
		ledger:   ledger.New(store, az),
	}
}

func decimalFrom(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func (e *env) user(t *testing.T, email string) int {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x"}
	require.NoError(t, e.store.Users().Insert(context.Background(), u))
	return u.ID
}

func TestCreate_InsertsFoundingOwner(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	u1 := e.user(t, "u1@example.com")

	org, err := e.manager.Create(ctx, "Acme", "longpass1", u1)
	require.NoError(t, err)
	require.NotZero(t, org.ID)
	assert.Equal(t, u1, org.CreatorID)

	role, err := e.registry.RoleOf(ctx, u1, org.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, role)

	// Stored secret is a bcrypt hash, never the plaintext.
	stored, err := e.store.Organizations().ByID(ctx, org.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.SecretHash), []byte("longpass1")))
}

func TestCreate_Validation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	u1 := e.user(t, "u1@example.com")

	_, err := e.manager.Create(ctx, "", "longpass1", u1)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = e.manager.Create(ctx, "Acme", "short", u1)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	// The name limit counts characters, not bytes.
	_, err = e.manager.Create(ctx, strings.Repeat("á", 150), "longpass1", u1)
	require.NoError(t, err)
	_, err = e.manager.Create(ctx, strings.Repeat("á", 151), "longpass1", u1)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreate_NameUniqueIgnoringCaseAndSpace(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	u1 := e.user(t, "u1@example.com")
	u2 := e.user(t, "u2@example.com")

	_, err := e.manager.Create(ctx, "Acme", "longpass1", u1)
	require.NoError(t, err)

	_, err = e.manager.Create(ctx, "  acme  ", "longpass2", u2)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestLogin(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	u1 := e.user(t, "u1@example.com")
	outsider := e.user(t, "out@example.com")

	org, err := e.manager.Create(ctx, "Acme", "longpass1", u1)
	require.NoError(t, err)

	got, err := e.manager.Login(ctx, "Acme", "longpass1", u1)
	require.NoError(t, err)
	assert.Equal(t, org.ID, got.ID)

	// Unknown name and wrong secret are indistinguishable.
	_, err = e.manager.Login(ctx, "Nope", "longpass1", u1)
	assert.True(t, apperr.Is(err, apperr.KindDenied))
	_, err = e.manager.Login(ctx, "Acme", "wrongpass", u1)
	assert.True(t, apperr.Is(err, apperr.KindDenied))

	// Correct secret is not enough for a non-member.
	_, err = e.manager.Login(ctx, "Acme", "longpass1", outsider)
	assert.True(t, apperr.Is(err, apperr.KindDenied))
}

func TestUpdateSecret_OwnerOnly(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	u1 := e.user(t, "u1@example.com")
	u2 := e.user(t, "u2@example.com")

	org, err := e.manager.Create(ctx, "Acme", "longpass1", u1)
	require.NoError(t, err)
	require.NoError(t, e.registry.AddMember(ctx, &models.Employee{UserID: u2, OrganizationID: org.ID, Role: models.RoleAdmin}))

	err = e.manager.UpdateSecret(ctx, org.ID, "newsecret9", u2)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDenied))

	// The permission check runs first, even for malformed input.
	err = e.manager.UpdateSecret(ctx, org.ID, "short", u2)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDenied))

	require.NoError(t, e.manager.UpdateSecret(ctx, org.ID, "newsecret9", u1))
	_, err = e.manager.Login(ctx, "Acme", "newsecret9", u1)
	require.NoError(t, err)
	_, err = e.manager.Login(ctx, "Acme", "longpass1", u1)
	assert.True(t, apperr.Is(err, apperr.KindDenied))

	err = e.manager.UpdateSecret(ctx, 999, "newsecret9", u1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMineAndAffiliated(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	u1 := e.user(t, "u1@example.com")
	u2 := e.user(t, "u2@example.com")

	owned, err := e.manager.Create(ctx, "Acme", "longpass1", u1)
	require.NoError(t, err)
	other, err := e.manager.Create(ctx, "Globex", "longpass2", u2)
	require.NoError(t, err)
	require.NoError(t, e.registry.AddMember(ctx, &models.Employee{UserID: u1, OrganizationID: other.ID, Role: models.RoleViewer}))

	mine, err := e.manager.Mine(ctx, u1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, owned.ID, mine[0].ID)
	assert.Equal(t, models.RoleOwner, mine[0].Role)

	affiliated, err := e.manager.Affiliated(ctx, u1)
	require.NoError(t, err)
	require.Len(t, affiliated, 1)
	assert.Equal(t, other.ID, affiliated[0].ID)
	assert.Equal(t, models.RoleViewer, affiliated[0].Role)
}

func TestDelete_CascadesMembersAndMovements(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	u1 := e.user(t, "u1@example.com")
	u2 := e.user(t, "u2@example.com")

	org, err := e.manager.Create(ctx, "Acme", "longpass1", u1)
	require.NoError(t, err)
	require.NoError(t, e.registry.AddMember(ctx, &models.Employee{UserID: u2, OrganizationID: org.ID, Role: models.RoleViewer}))
	_, err = e.ledger.Create(ctx, org.ID, u1, ledger.Input{Title: "Sale", Type: models.TypeIngreso})
	require.NoError(t, err)

	// Only the Owner may delete.
	err = e.manager.Delete(ctx, org.ID, u2)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDenied))

	require.NoError(t, e.manager.Delete(ctx, org.ID, u1))

	_, err = e.store.Organizations().ByID(ctx, org.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	members, err := e.store.Employees().ListByOrg(ctx, org.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
	count, err := e.store.Movements().CountByOrg(ctx, org.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = e.manager.Delete(ctx, org.ID, u1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteUserAccount(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	u1 := e.user(t, "u1@example.com")
	u2 := e.user(t, "u2@example.com")

	owned, err := e.manager.Create(ctx, "Acme", "longpass1", u1)
	require.NoError(t, err)
	other, err := e.manager.Create(ctx, "Globex", "longpass2", u2)
	require.NoError(t, err)
	require.NoError(t, e.registry.AddMember(ctx, &models.Employee{UserID: u1, OrganizationID: other.ID, Role: models.RoleViewer}))
	_, err = e.ledger.Create(ctx, owned.ID, u1, ledger.Input{Title: "Sale", Type: models.TypeIngreso})
	require.NoError(t, err)

	require.NoError(t, e.manager.DeleteUserAccount(ctx, u1))

	// Owned organization is gone, movements and all.
	_, err = e.store.Organizations().ByID(ctx, owned.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	count, err := e.store.Movements().CountByOrg(ctx, owned.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// The foreign membership is removed; the organization survives.
	role, err := e.registry.RoleOf(ctx, u1, other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Role(""), role)
	_, err = e.store.Organizations().ByID(ctx, other.ID)
	require.NoError(t, err)

	_, err = e.store.Users().ByID(ctx, u1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = e.manager.DeleteUserAccount(ctx, u1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

// End-to-end walk through a small organization's life: founding,
// a viewer who cannot write, two movements, one deletion with
// renumbering, and the balance after each step.
func TestOrganizationLifecycle(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	u1 := e.user(t, "u1@example.com")
	u2 := e.user(t, "u2@example.com")

	org, err := e.manager.Create(ctx, "Acme", "longpass1", u1)
	require.NoError(t, err)

	require.NoError(t, e.registry.AddMember(ctx, &models.Employee{UserID: u2, OrganizationID: org.ID, Role: models.RoleViewer}))

	_, err = e.ledger.Create(ctx, org.ID, u2, ledger.Input{Title: "Sneaky", Type: models.TypeIngreso})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDenied))

	m1, err := e.ledger.Create(ctx, org.ID, u1, ledger.Input{
		Title: "Sale", Type: models.TypeIngreso, Amount: decimalFrom(t, "100.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m1.NoMov)

	m2, err := e.ledger.Create(ctx, org.ID, u1, ledger.Input{
		Title: "Rent", Type: models.TypeEgreso, Amount: decimalFrom(t, "40.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m2.NoMov)

	balance, err := e.ledger.Balance(ctx, org.ID, u2)
	require.NoError(t, err)
	assert.Equal(t, "60.00", balance.StringFixed(2))

	require.NoError(t, e.ledger.DeleteOne(ctx, org.ID, 1, u1))

	movs, err := e.ledger.List(ctx, org.ID, u2)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, 1, movs[0].NoMov)
	assert.Equal(t, "Rent", movs[0].Title)

	balance, err = e.ledger.Balance(ctx, org.ID, u2)
	require.NoError(t, err)
	assert.Equal(t, "-40.00", balance.StringFixed(2))
}
