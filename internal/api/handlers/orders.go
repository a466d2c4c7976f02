package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/fieldops/internal/api/dto"
	"github.com/hugh/fieldops/internal/workorder"
)

// OrderHandler serves work orders, their timeline and their messages.
type OrderHandler struct {
	svc    *workorder.Service
	logger *slog.Logger
}

func NewOrderHandler(svc *workorder.Service, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/{organizationSlug}/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	params := workorder.ParseListParams(r.URL.Query(), workorder.OrderSorts)
	page, err := h.svc.ListOrders(r.Context(), tc, params)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Create handles POST /api/v1/{organizationSlug}/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	var req dto.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		validationFailed(w, errs)
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), tc, req.ToInput())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ReportResponse{Report: order})
}

// Get handles GET /api/v1/{organizationSlug}/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(r.Context(), tc, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReportResponse{Report: order})
}

// Update handles PATCH /api/v1/{organizationSlug}/orders/{id}
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req dto.UpdateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch, errs := req.ToPatch()
	if len(errs) > 0 {
		validationFailed(w, errs)
		return
	}

	result, err := h.svc.UpdateOrder(r.Context(), tc, id, patch)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Events handles GET /api/v1/{organizationSlug}/orders/{id}/events
func (h *OrderHandler) Events(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	events, err := h.svc.ListEvents(r.Context(), tc, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.EventsResponse{Events: events})
}

// Messages handles GET /api/v1/{organizationSlug}/orders/{id}/messages
func (h *OrderHandler) Messages(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	messages, err := h.svc.ListMessages(r.Context(), tc, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessagesResponse{Messages: messages})
}

// PostMessage handles POST /api/v1/{organizationSlug}/orders/{id}/messages
func (h *OrderHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req dto.MessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		validationFailed(w, errs)
		return
	}

	msg, err := h.svc.PostMessage(r.Context(), tc, id, req.Text, req.Tags)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.MessageResponse{Message: msg})
}
