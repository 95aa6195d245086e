package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"capitalapi/internal/middleware"
)

type OrganizationRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

type UpdateSecretRequest struct {
	Secret string `json:"secret"`
}

// MyOrganizations lists the organizations the caller owns.
func MyOrganizations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	orgs, err := Orgs.Mine(r.Context(), userID)
	if err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccess(w, http.StatusOK, "Organizations retrieved successfully", orgs)
}

// AffiliatedOrganizations lists organizations the caller belongs to
// without owning.
func AffiliatedOrganizations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	orgs, err := Orgs.Affiliated(r.Context(), userID)
	if err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccess(w, http.StatusOK, "Organizations retrieved successfully", orgs)
}

func CreateOrganization(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req OrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	org, err := Orgs.Create(r.Context(), req.Name, req.Secret, userID)
	if err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccess(w, http.StatusCreated, "Organization created successfully", org)
}

// LoginOrganization checks the organization-level secret for a member.
func LoginOrganization(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req OrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	org, err := Orgs.Login(r.Context(), req.Name, req.Secret, userID)
	if err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccess(w, http.StatusOK, "Organization login successful", org)
}

func UpdateOrganizationSecret(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	var req UpdateSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := Orgs.UpdateSecret(r.Context(), orgID, req.Secret, userID); err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccessNoData(w, http.StatusOK, "Organization secret updated successfully")
}

func DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	if err := Orgs.Delete(r.Context(), orgID, userID); err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccessNoData(w, http.StatusOK, "Organization deleted successfully")
}

func orgIDVar(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["id"])
}
