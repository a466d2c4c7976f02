package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/fieldops/internal/api/dto"
	"github.com/hugh/fieldops/internal/api/validation"
	"github.com/hugh/fieldops/internal/tenant"
	"github.com/hugh/fieldops/internal/workorder"
)

// ReportHandler serves completed reports and their corrections.
type ReportHandler struct {
	svc    *workorder.Service
	logger *slog.Logger
}

func NewReportHandler(svc *workorder.Service, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/{organizationSlug}/reports
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	params := workorder.ParseListParams(r.URL.Query(), workorder.ReportSorts)
	page, err := h.svc.ListReports(r.Context(), tc, params)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/v1/{organizationSlug}/reports/{id}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	report, err := h.svc.GetReport(r.Context(), tc, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReportResponse{Report: report})
}

// Corrections handles GET /api/v1/{organizationSlug}/reports/{id}/corrections
func (h *ReportHandler) Corrections(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	h.listCorrections(w, r, tc, id)
}

// CreateCorrection handles POST /api/v1/{organizationSlug}/reports/{id}/corrections
func (h *ReportHandler) CreateCorrection(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req dto.CreateCorrectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ReportID = id
	h.createCorrection(w, r, tc, req)
}

// ListCorrections handles GET /api/v1/{organizationSlug}/corrections?reportId=
func (h *ReportHandler) ListCorrections(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, err := validation.ParseID(r.URL.Query().Get("reportId"))
	if err != nil {
		validationFailed(w, map[string]string{"reportId": "reportId is required"})
		return
	}
	h.listCorrections(w, r, tc, id)
}

// PostCorrection handles POST /api/v1/{organizationSlug}/corrections
func (h *ReportHandler) PostCorrection(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	var req dto.CreateCorrectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.createCorrection(w, r, tc, req)
}

// UpdateCorrection handles PATCH /api/v1/{organizationSlug}/corrections?id=
func (h *ReportHandler) UpdateCorrection(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		validationFailed(w, map[string]string{"id": "id is required"})
		return
	}

	var req dto.UpdateCorrectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Sanitize()

	result, err := h.svc.UpdateCorrection(r.Context(), tc, id, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ReportHandler) listCorrections(w http.ResponseWriter, r *http.Request, tc tenant.Context, reportID uint) {
	corrections, err := h.svc.ListCorrections(r.Context(), tc, reportID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CorrectionsResponse{Corrections: corrections})
}

func (h *ReportHandler) createCorrection(w http.ResponseWriter, r *http.Request, tc tenant.Context, req dto.CreateCorrectionRequest) {
	if errs := req.Validate(); len(errs) > 0 {
		validationFailed(w, errs)
		return
	}

	correction, err := h.svc.CreateCorrection(r.Context(), tc, req.ReportID, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.CorrectionResponse{Correction: correction})
}
