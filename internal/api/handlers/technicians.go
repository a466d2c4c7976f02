package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/fieldops/internal/api/dto"
	"github.com/hugh/fieldops/internal/api/validation"
	"github.com/hugh/fieldops/internal/workorder"
)

type TechnicianHandler struct {
	svc    *workorder.Service
	logger *slog.Logger
}

func NewTechnicianHandler(svc *workorder.Service, logger *slog.Logger) *TechnicianHandler {
	return &TechnicianHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/{organizationSlug}/technicians
func (h *TechnicianHandler) List(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	params := workorder.ParseListParams(r.URL.Query(), workorder.TechnicianSorts)
	page, err := h.svc.ListTechnicians(r.Context(), tc, params)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/v1/{organizationSlug}/technicians/{id}
func (h *TechnicianHandler) Get(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, err := validation.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid ID"})
		return
	}

	detail, err := h.svc.GetTechnician(r.Context(), tc, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Users handles GET /api/v1/{organizationSlug}/users?options=name&name=
// It only serves the assignee picker.
func (h *TechnicianHandler) Users(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("options") != "name" {
		validationFailed(w, map[string]string{"options": "options must be name"})
		return
	}

	options, err := h.svc.MemberOptions(r.Context(), tc, r.URL.Query().Get("name"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}
