package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/fieldops/internal/api/dto"
	"github.com/hugh/fieldops/internal/api/validation"
	"github.com/hugh/fieldops/internal/tenant"
	"github.com/hugh/fieldops/internal/workorder"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// writeServiceError maps service errors onto status codes. Anything outside
// the known taxonomy is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *workorder.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: verr.Fields})
	case errors.Is(err, workorder.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
	case errors.Is(err, workorder.ErrForbidden):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
	case errors.Is(err, workorder.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Not found"})
	case errors.Is(err, workorder.ErrReportLocked):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Report is completed and locked"})
	case errors.Is(err, workorder.ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid status"})
	case errors.Is(err, workorder.ErrInvalidRange):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid date range"})
	case errors.Is(err, workorder.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid input"})
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
	}
}

func validationFailed(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: details})
}

// tenantFrom returns the membership resolved by the tenant middleware.
func tenantFrom(w http.ResponseWriter, r *http.Request) (tenant.Context, bool) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
	}
	return tc, ok
}

func idParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := validation.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid ID"})
		return 0, false
	}
	return id, true
}
