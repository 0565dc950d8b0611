package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/seedpm/seed/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "err", err)
	}
}

// writeError maps the error taxonomy onto the standard error response.
// Errors without a status default to 500 with a generic message so internal
// details never leak.
func writeError(w http.ResponseWriter, err error) {
	resp := models.ErrorResponse{
		Error: models.ErrorDetails{
			Code:    models.CodeInternal,
			Message: "internal error",
		},
	}
	var ews models.ErrorWithStatus
	if errors.As(err, &ews) {
		resp.Error.Code = ews.Code()
		resp.Error.Message = ews.Error()
	}
	writeJSON(w, models.StatusCode(err), resp)
}

func writeForbidden(w http.ResponseWriter) {
	writeError(w, models.Forbidden("forbidden"))
}

// writeOK writes an empty 200, used by idempotent destroy and update
// endpoints.
func writeOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}
