package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"capitalapi/internal/apperr"
	"capitalapi/internal/authz"
	"capitalapi/internal/middleware"
	"capitalapi/internal/models"
)

type MemberRequest struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// GetMembers lists the memberships of an organization. Any member may
// call it; the response is cached for a few seconds upstream.
func GetMembers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	if err := Authz.Authorize(r.Context(), userID, orgID, authz.OpViewMembers); err != nil {
		SendAppError(w, err)
		return
	}

	members, err := Registry.ListMembers(r.Context(), orgID)
	if err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccess(w, http.StatusOK, "Organization members retrieved successfully", members)
}

// AddMember grants a user membership in the organization. Owner only;
// the target role must be Admin or Viewer.
func AddMember(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Role == "" {
		SendAppError(w, apperr.Validation("email", "email and role are required"))
		return
	}

	if err := Authz.Authorize(r.Context(), callerID, orgID, authz.OpAddMember); err != nil {
		SendAppError(w, err)
		return
	}

	user, err := Store.Users().ByEmail(r.Context(), NormalizeEmail(req.Email))
	if err != nil {
		SendAppError(w, apperr.NotFound("no user exists with that email"))
		return
	}

	emp := &models.Employee{
		UserID:         user.ID,
		OrganizationID: orgID,
		Role:           req.Role,
	}
	if err := Registry.AddMember(r.Context(), emp); err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccess(w, http.StatusCreated, "Member added to organization successfully", emp)
}

// UpdateMemberRole reassigns a member's role. Owner only; the Owner
// cannot re-target themselves.
func UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Role == "" {
		SendAppError(w, apperr.Validation("email", "email and role are required"))
		return
	}

	if err := Authz.Authorize(r.Context(), callerID, orgID, authz.OpChangeMemberRole); err != nil {
		SendAppError(w, err)
		return
	}

	emp, err := Registry.MemberByEmail(r.Context(), orgID, NormalizeEmail(req.Email))
	if err != nil {
		SendAppError(w, err)
		return
	}
	if err := Authz.AuthorizeTarget(r.Context(), callerID, orgID, authz.OpChangeMemberRole, emp.UserID); err != nil {
		SendAppError(w, err)
		return
	}

	if err := Registry.ChangeRole(r.Context(), emp.ID, req.Role); err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccessNoData(w, http.StatusOK, "Member role updated successfully")
}

// RemoveMember ends a membership. Owner only; the Owner cannot remove
// themselves.
func RemoveMember(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}
	email := mux.Vars(r)["email"]
	if email == "" {
		SendAppError(w, apperr.Validation("email", "email is required"))
		return
	}

	if err := Authz.Authorize(r.Context(), callerID, orgID, authz.OpRemoveMember); err != nil {
		SendAppError(w, err)
		return
	}

	emp, err := Registry.MemberByEmail(r.Context(), orgID, NormalizeEmail(email))
	if err != nil {
		SendAppError(w, err)
		return
	}
	if err := Authz.AuthorizeTarget(r.Context(), callerID, orgID, authz.OpRemoveMember, emp.UserID); err != nil {
		SendAppError(w, err)
		return
	}

	if err := Registry.RemoveMember(r.Context(), emp); err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccessNoData(w, http.StatusOK, "Member removed from organization successfully")
}
