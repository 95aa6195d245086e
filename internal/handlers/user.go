package handlers

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"capitalapi/internal/apperr"
	"capitalapi/internal/middleware"
)

type ChangePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// ModifyMyPassword replaces the caller's own password.
func ModifyMyPassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.NewPassword == "" {
		SendAppError(w, apperr.Validation("new_password", "new password is required"))
		return
	}
	if len(req.NewPassword) < 8 {
		SendAppError(w, apperr.Validation("new_password", "new password must be at least 8 characters"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		SendError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}
	if err := Store.Users().UpdatePassword(r.Context(), userID, string(hashed)); err != nil {
		SendAppError(w, err)
		return
	}

	SendSuccessNoData(w, http.StatusOK, "Password updated successfully")
}

// DeleteMyAccount unwinds every organization, membership and movement
// the caller touches, then removes the user itself.
func DeleteMyAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	if err := Orgs.DeleteUserAccount(r.Context(), userID); err != nil {
		SendAppError(w, err)
		return
	}

	SendSuccessNoData(w, http.StatusOK, "Account deleted successfully")
}
