package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"capitalapi/internal/ledger"
	"capitalapi/internal/middleware"
)

// GetMovements lists the organization's movements ordered by NoMov.
func GetMovements(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	movs, err := Ledger.List(r.Context(), orgID, userID)
	if err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccess(w, http.StatusOK, "Movements retrieved successfully", movs)
}

func CreateMovement(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	var in ledger.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	mov, err := Ledger.Create(r.Context(), orgID, userID, in)
	if err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccess(w, http.StatusCreated, "Movement created successfully", mov)
}

// GetBalance returns income minus expense recomputed from the live
// movement set.
func GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	balance, err := Ledger.Balance(r.Context(), orgID, userID)
	if err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccess(w, http.StatusOK, "Balance calculated successfully", map[string]string{"balance": balance.StringFixed(2)})
}

func UpdateMovement(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}
	noMov, err := strconv.Atoi(mux.Vars(r)["noMov"])
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid movement number")
		return
	}

	var in ledger.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	mov, err := Ledger.Update(r.Context(), orgID, noMov, userID, in)
	if err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccess(w, http.StatusOK, "Movement updated successfully", mov)
}

// DeleteMovement removes one movement; the remaining movements are
// renumbered so NoMov stays dense.
func DeleteMovement(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}
	noMov, err := strconv.Atoi(mux.Vars(r)["noMov"])
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid movement number")
		return
	}

	if err := Ledger.DeleteOne(r.Context(), orgID, noMov, userID); err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccessNoData(w, http.StatusOK, "Movement deleted successfully")
}

func DeleteAllMovements(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	if err := Ledger.DeleteAll(r.Context(), orgID, userID); err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccessNoData(w, http.StatusOK, "All movements deleted successfully")
}
