package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capitalapi/internal/authz"
	"capitalapi/internal/ledger"
	"capitalapi/internal/middleware"
	"capitalapi/internal/models"
	"capitalapi/internal/orgs"
	"capitalapi/internal/registry"
	"capitalapi/internal/response"
	"capitalapi/internal/storage/memory"
)

// setup wires the package globals to a fresh in-memory store and
// returns it for seeding.
func setup(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	reg := registry.New(store)
	az := authz.New(reg)

	Store = store
	Registry = reg
	Authz = az
	Ledger = ledger.New(store, az)
	Orgs = orgs.New(store, az)
	return store
}

func seedUser(t *testing.T, store *memory.Store, email string) int {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x"}
	require.NoError(t, store.Users().Insert(context.Background(), u))
	return u.ID
}

// do runs a handler as the given user with mux vars applied and
// decodes the envelope.
func do(t *testing.T, h http.HandlerFunc, userID int, method string, vars map[string]string, body interface{}) (int, response.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, "/", &buf)
	r = r.WithContext(context.WithValue(r.Context(), middleware.UserIDContextKey, userID))
	if vars != nil {
		r = mux.SetURLVars(r, vars)
	}
	w := httptest.NewRecorder()
	h(w, r)

	var env response.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return w.Code, env
}

func orgVars(orgID int) map[string]string {
	return map[string]string{"id": strconv.Itoa(orgID)}
}

func createOrg(t *testing.T, userID int, name string) int {
	t.Helper()
	code, env := do(t, CreateOrganization, userID, http.MethodPost, nil,
		OrganizationRequest{Name: name, Secret: "longpass1"})
	require.Equal(t, http.StatusCreated, code)
	require.True(t, env.Success)

	org, err := Orgs.Mine(context.Background(), userID)
	require.NoError(t, err)
	return org[len(org)-1].ID
}

func TestCreateOrganization(t *testing.T) {
	store := setup(t)
	u1 := seedUser(t, store, "u1@example.com")
	u2 := seedUser(t, store, "u2@example.com")

	orgID := createOrg(t, u1, "Acme")
	assert.NotZero(t, orgID)

	code, env := do(t, CreateOrganization, u2, http.MethodPost, nil,
		OrganizationRequest{Name: "acme", Secret: "longpass2"})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)

	code, _ = do(t, CreateOrganization, u2, http.MethodPost, nil,
		OrganizationRequest{Name: "Globex", Secret: "short"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMovementEndpoints(t *testing.T) {
	store := setup(t)
	u1 := seedUser(t, store, "u1@example.com")
	u2 := seedUser(t, store, "u2@example.com")
	orgID := createOrg(t, u1, "Acme")

	code, _ := do(t, AddMember, u1, http.MethodPost, orgVars(orgID),
		MemberRequest{Email: "u2@example.com", Role: models.RoleViewer})
	require.Equal(t, http.StatusCreated, code)

	// Viewer cannot write.
	code, env := do(t, CreateMovement, u2, http.MethodPost, orgVars(orgID),
		map[string]interface{}{"title": "Sale", "type": "Ingreso", "amount": "100.00"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Success)

	code, _ = do(t, CreateMovement, u1, http.MethodPost, orgVars(orgID),
		map[string]interface{}{"title": "Sale", "type": "Ingreso", "amount": "100.00"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = do(t, CreateMovement, u1, http.MethodPost, orgVars(orgID),
		map[string]interface{}{"title": "Rent", "type": "Egreso", "amount": "40.00"})
	require.Equal(t, http.StatusCreated, code)

	code, env = do(t, GetBalance, u2, http.MethodGet, orgVars(orgID), nil)
	require.Equal(t, http.StatusOK, code)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "60.00", data["balance"])

	vars := orgVars(orgID)
	vars["noMov"] = "1"
	code, _ = do(t, DeleteMovement, u1, http.MethodDelete, vars, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = do(t, GetMovements, u2, http.MethodGet, orgVars(orgID), nil)
	require.Equal(t, http.StatusOK, code)
	movs := env.Data.([]interface{})
	require.Len(t, movs, 1)
	first := movs[0].(map[string]interface{})
	assert.Equal(t, float64(1), first["no_mov"])

	code, _ = do(t, GetMovements, u1, http.MethodGet, map[string]string{"id": "abc"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMemberEndpoints(t *testing.T) {
	store := setup(t)
	u1 := seedUser(t, store, "u1@example.com")
	seedUser(t, store, "u2@example.com")
	orgID := createOrg(t, u1, "Acme")

	// Unknown target email.
	code, _ := do(t, AddMember, u1, http.MethodPost, orgVars(orgID),
		MemberRequest{Email: "ghost@example.com", Role: models.RoleViewer})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, AddMember, u1, http.MethodPost, orgVars(orgID),
		MemberRequest{Email: "u2@example.com", Role: models.RoleAdmin})
	require.Equal(t, http.StatusCreated, code)

	// Owner cannot change their own role or remove themselves.
	code, _ = do(t, UpdateMemberRole, u1, http.MethodPut, orgVars(orgID),
		MemberRequest{Email: "u1@example.com", Role: models.RoleViewer})
	assert.Equal(t, http.StatusForbidden, code)

	vars := orgVars(orgID)
	vars["email"] = "u1@example.com"
	code, _ = do(t, RemoveMember, u1, http.MethodDelete, vars, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := do(t, GetMembers, u1, http.MethodGet, orgVars(orgID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, env.Data.([]interface{}), 2)

	vars["email"] = "u2@example.com"
	code, _ = do(t, RemoveMember, u1, http.MethodDelete, vars, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = do(t, GetMembers, u1, http.MethodGet, orgVars(orgID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, env.Data.([]interface{}), 1)
}

func TestUpdateOrganizationSecret_NonOwnerForbidden(t *testing.T) {
	store := setup(t)
	u1 := seedUser(t, store, "u1@example.com")
	u2 := seedUser(t, store, "u2@example.com")
	orgID := createOrg(t, u1, "Acme")

	code, _ := do(t, AddMember, u1, http.MethodPost, orgVars(orgID),
		MemberRequest{Email: "u2@example.com", Role: models.RoleAdmin})
	require.Equal(t, http.StatusCreated, code)

	code, _ = do(t, UpdateOrganizationSecret, u2, http.MethodPut, orgVars(orgID),
		UpdateSecretRequest{Secret: "newsecret9"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = do(t, UpdateOrganizationSecret, u1, http.MethodPut, orgVars(orgID),
		UpdateSecretRequest{Secret: "newsecret9"})
	assert.Equal(t, http.StatusOK, code)
}
