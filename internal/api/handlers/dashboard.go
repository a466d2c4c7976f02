package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/fieldops/internal/dashboard"
)

type DashboardHandler struct {
	svc    *dashboard.Service
	logger *slog.Logger
}

func NewDashboardHandler(svc *dashboard.Service, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, logger: logger}
}

// Snapshot handles GET /api/v1/{organizationSlug}/dashboard?from=&to=
func (h *DashboardHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	if err := h.svc.Authorize(tc); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	rng, err := h.svc.ParseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	snap, err := h.svc.Snapshot(r.Context(), tc, rng)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
