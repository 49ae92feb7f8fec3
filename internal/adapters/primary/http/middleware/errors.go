package middleware

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/lorrc/ticket-monitor/internal/core/errors"
)

// writeAppError writes appErr in the same shape the handlers use and notes
// its code for the access log.
func writeAppError(w http.ResponseWriter, r *http.Request, appErr *apperrors.AppError) {
	NoteErrorCode(r.Context(), appErr.Code)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"detail": appErr.Message,
		"code":   appErr.Code,
	})
}
