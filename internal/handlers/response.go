package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"capitalapi/internal/apperr"
	"capitalapi/internal/response"
)

// Re-export response functions for convenience
var (
	SendSuccess       = response.SendSuccess
	SendError         = response.SendError
	SendSuccessNoData = response.SendSuccessNoData
)

// SendAppError maps the error taxonomy to status codes. Unclassified
// errors are logged and reported as a plain 500.
func SendAppError(w http.ResponseWriter, err error) {
	kind, ok := apperr.KindOf(err)
	if !ok {
		log.Error().Err(err).Msg("unhandled error")
		SendError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindDenied:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindIntegrity:
		log.Error().Err(err).Msg("integrity failure")
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		response.SendErrorField(w, status, appErr.Reason, appErr.Field)
		return
	}
	SendError(w, status, err.Error())
}
