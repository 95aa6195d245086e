package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"capitalapi/internal/middleware"
)

type PostMessageRequest struct {
	Text string `json:"text"`
}

// GetMessages returns the organization's chat history, oldest first.
func GetMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	msgs, err := Chat.History(r.Context(), orgID, userID, limit)
	if err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccess(w, http.StatusOK, "Messages retrieved successfully", msgs)
}

// PostMessage appends a message to the organization's chat room.
func PostMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	orgID, err := orgIDVar(r)
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := Store.Users().ByID(r.Context(), userID)
	if err != nil {
		SendAppError(w, err)
		return
	}

	msg, err := Chat.Post(r.Context(), orgID, userID, user.Email, req.Text)
	if err != nil {
		SendAppError(w, err)
		return
	}
	SendSuccess(w, http.StatusCreated, "Message sent successfully", msg)
}
