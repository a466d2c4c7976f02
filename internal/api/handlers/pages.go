package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hugh/fieldops/internal/api/dto"
	"github.com/hugh/fieldops/internal/api/middleware"
	"github.com/hugh/fieldops/internal/auth"
	"github.com/hugh/fieldops/internal/dashboard"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/tenant"
	"github.com/hugh/fieldops/internal/web"
	"github.com/hugh/fieldops/internal/workorder"
)

// PageHandler renders the server-side pages.
type PageHandler struct {
	orders     *workorder.Service
	dashboard  *dashboard.Service
	orgService *auth.OrgService
	templates  *web.Templates
	csrf       *middleware.CSRFStore
	logger     *slog.Logger
}

func NewPageHandler(orders *workorder.Service, dash *dashboard.Service, orgService *auth.OrgService, templates *web.Templates, csrf *middleware.CSRFStore, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		orders:     orders,
		dashboard:  dash,
		orgService: orgService,
		templates:  templates,
		csrf:       csrf,
		logger:     logger,
	}
}

type layout struct {
	User *models.User
	Org  *models.Organization
}

func tenantLayout(tc tenant.Context) layout {
	return layout{User: tc.Member.User, Org: tc.Organization}
}

type bar struct {
	Label  string
	Value  int
	Height int
}

type dashboardPage struct {
	layout
	From     string
	To       string
	Snapshot *dashboard.Snapshot
	Bars     []bar
	Error    string
}

type ordersPage struct {
	layout
	Query      string
	Privileged bool
	Page       *workorder.Page
}

type orderForm struct {
	Title      string
	Content    string
	AssigneeID string
}

type orderCreatePage struct {
	layout
	CSRFToken string
	Form      orderForm
	Options   []workorder.MemberOption
	Errors    map[string]string
}

var loginErrors = map[string]string{
	"invalid":     "Ingresa un correo y una contraseña válidos.",
	"credentials": "Correo o contraseña incorrectos.",
}

// Login handles GET /login
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "login.html", struct {
		layout
		Error string
	}{Error: loginErrors[r.URL.Query().Get("error")]})
}

// Index handles GET /dashboard by sending the user to their first organization.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgService.ListOrganizations(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.logger.Error("listing organizations", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if len(orgs) == 0 {
		h.render(w, http.StatusOK, "no_organization.html", layout{})
		return
	}
	http.Redirect(w, r, "/dashboard/"+url.PathEscape(orgs[0].Slug), http.StatusSeeOther)
}

// Dashboard handles GET /dashboard/{organizationSlug}. Members are sent to
// their order list.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if h.dashboard.Authorize(tc) != nil {
		http.Redirect(w, r, "/dashboard/"+url.PathEscape(tc.Organization.Slug)+"/orders", http.StatusSeeOther)
		return
	}

	q := r.URL.Query()
	data := dashboardPage{layout: tenantLayout(tc), From: q.Get("from"), To: q.Get("to")}

	rng, err := h.dashboard.ParseRange(data.From, data.To)
	if err != nil {
		data.Error = "Rango de fechas inválido."
		h.render(w, http.StatusBadRequest, "dashboard.html", data)
		return
	}
	data.From = rng.From.Format("2006-01-02")
	data.To = rng.To.Format("2006-01-02")

	snap, err := h.dashboard.Snapshot(r.Context(), tc, rng)
	if err != nil {
		h.pageError(w, err)
		return
	}
	data.Snapshot = snap
	data.Bars = bars(snap.Series)
	h.render(w, http.StatusOK, "dashboard.html", data)
}

// Orders handles GET /dashboard/{organizationSlug}/orders
func (h *PageHandler) Orders(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	params := workorder.ParseListParams(r.URL.Query(), workorder.OrderSorts)
	page, err := h.orders.ListOrders(r.Context(), tc, params)
	if err != nil {
		h.pageError(w, err)
		return
	}
	h.render(w, http.StatusOK, "orders.html", ordersPage{
		layout:     tenantLayout(tc),
		Query:      params.Query,
		Privileged: h.orders.Policy().CanManage(tc, workorder.ObjectReport),
		Page:       page,
	})
}

// CreateOrderForm handles GET /dashboard/{organizationSlug}/orders/create
func (h *PageHandler) CreateOrderForm(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.renderOrderForm(w, r, tc, http.StatusOK, orderForm{}, nil)
}

// CreateOrder handles POST /dashboard/{organizationSlug}/orders/create
func (h *PageHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	form := orderForm{
		Title:      r.PostForm.Get("title"),
		Content:    r.PostForm.Get("content"),
		AssigneeID: r.PostForm.Get("assigneeId"),
	}
	req := dto.CreateOrderRequest{Title: form.Title, Content: form.Content, AssigneeID: form.AssigneeID}
	if errs := req.Validate(); len(errs) > 0 {
		h.renderOrderForm(w, r, tc, http.StatusBadRequest, form, errs)
		return
	}

	_, err := h.orders.CreateOrder(r.Context(), tc, req.ToInput())
	if err != nil {
		var verr *workorder.ValidationError
		switch {
		case errors.As(err, &verr):
			h.renderOrderForm(w, r, tc, http.StatusBadRequest, form, verr.Fields)
		case errors.Is(err, workorder.ErrInvalidInput):
			h.renderOrderForm(w, r, tc, http.StatusBadRequest, form, map[string]string{"assigneeId": "El técnico no pertenece a la organización."})
		default:
			h.pageError(w, err)
		}
		return
	}

	http.Redirect(w, r, "/dashboard/"+url.PathEscape(tc.Organization.Slug)+"/orders", http.StatusSeeOther)
}

func (h *PageHandler) renderOrderForm(w http.ResponseWriter, r *http.Request, tc tenant.Context, status int, form orderForm, errs map[string]string) {
	data := orderCreatePage{
		layout:    tenantLayout(tc),
		CSRFToken: middleware.GetCSRFToken(r, h.csrf),
		Form:      form,
		Errors:    errs,
	}

	// Only coordinators can pick an assignee.
	if h.orders.Policy().CanManage(tc, workorder.ObjectReport) {
		options, err := h.orders.MemberOptions(r.Context(), tc, "")
		if err != nil {
			h.pageError(w, err)
			return
		}
		data.Options = options
	}
	h.render(w, status, "order_create.html", data)
}

func (h *PageHandler) pageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workorder.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, workorder.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	default:
		h.logger.Error("rendering page", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *PageHandler) render(w http.ResponseWriter, status int, name string, data interface{}) {
	if h.templates == nil {
		http.Error(w, "Templates not loaded", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, name, data); err != nil {
		h.logger.Error("executing template", "template", name, "error", err)
	}
}

// bars scales the series to percentages of its maximum for the chart.
func bars(series []dashboard.Point) []bar {
	peak := 0
	for _, p := range series {
		peak = max(peak, p.Value)
	}
	out := make([]bar, 0, len(series))
	for _, p := range series {
		b := bar{Label: p.Timestamp.Format("02/01"), Value: p.Value}
		if peak > 0 {
			b.Height = p.Value * 100 / peak
		}
		out = append(out, b)
	}
	return out
}
