package api_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hugh/fieldops/internal/api"
	"github.com/hugh/fieldops/internal/api/middleware"
	"github.com/hugh/fieldops/internal/auth"
	"github.com/hugh/fieldops/internal/dashboard"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/testutil"
	"github.com/hugh/fieldops/internal/web"
	"github.com/hugh/fieldops/internal/workorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, opts ...func(*api.RouterConfig)) (*api.Router, *testutil.TestSetup) {
	t.Helper()
	ts := testutil.NewTestContext(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	templates, err := web.LoadTemplates()
	require.NoError(t, err)
	static, err := web.GetStaticFS()
	require.NoError(t, err)

	policy := workorder.MustNewPolicy()
	cfg := api.RouterConfig{
		DB:          ts.DB,
		Logger:      logger,
		JWTService:  ts.JWTService,
		AuthService: auth.NewService(ts.DB, ts.JWTService),
		OrgService:  auth.NewOrgService(ts.DB),
		Orders:      workorder.NewService(ts.DB, policy, logger),
		Dashboard:   dashboard.NewService(ts.DB, policy, time.UTC, logger),
		Templates:   templates,
		StaticFS:    static,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	router := api.NewRouter(cfg)
	t.Cleanup(router.Close)
	return router, ts
}

func pageRequest(method, path string, body io.Reader, token string) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Accept", "text/html")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
	}
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRouter_PublicEndpoints(t *testing.T) {
	router, ts := setupRouter(t)
	defer ts.Cleanup()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		contains   string
	}{
		{"health", "/health", http.StatusOK, `"database":"healthy"`},
		{"ready", "/ready", http.StatusOK, "ok"},
		{"metrics", "/metrics", http.StatusOK, "fieldops_"},
		{"stylesheet", "/static/app.css", http.StatusOK, ""},
		{"login page", "/login", http.StatusOK, "Iniciar sesión"},
		{"login error", "/login?error=credentials", http.StatusOK, "Correo o contraseña incorrectos."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(router, pageRequest(http.MethodGet, tt.path, nil, ""))
			testutil.AssertStatus(t, rr, tt.wantStatus)
			assert.Contains(t, rr.Body.String(), tt.contains)
		})
	}
}

func TestRouter_DashboardRedirects(t *testing.T) {
	router, ts := setupRouter(t)
	defer ts.Cleanup()

	base := "/dashboard/" + ts.Org.Slug

	rr := serve(router, pageRequest(http.MethodGet, "/", nil, ""))
	testutil.AssertStatus(t, rr, http.StatusSeeOther)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	rr = serve(router, pageRequest(http.MethodGet, "/dashboard", nil, ""))
	testutil.AssertStatus(t, rr, http.StatusFound)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = serve(router, pageRequest(http.MethodGet, "/dashboard", nil, ts.OwnerToken))
	testutil.AssertStatus(t, rr, http.StatusSeeOther)
	assert.Equal(t, base, rr.Header().Get("Location"))

	rr = serve(router, pageRequest(http.MethodGet, base, nil, ts.OwnerToken))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), "SLA 72h")

	rr = serve(router, pageRequest(http.MethodGet, base+"?from=2024-03-10&to=2024-03-01", nil, ts.OwnerToken))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	assert.Contains(t, rr.Body.String(), "Rango de fechas inválido.")

	// Technicians have no dashboard; they land on their own orders.
	rr = serve(router, pageRequest(http.MethodGet, base, nil, ts.TechnicianToken))
	testutil.AssertStatus(t, rr, http.StatusSeeOther)
	assert.Equal(t, base+"/orders", rr.Header().Get("Location"))

	loner := testutil.CreateTestUser(t, ts.DB, "Sin Org")
	rr = serve(router, pageRequest(http.MethodGet, "/dashboard", nil, testutil.GenerateTestToken(t, ts.JWTService, loner)))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), "Sin organización")

	rr = serve(router, pageRequest(http.MethodGet, "/dashboard/unknown-org", nil, ts.OwnerToken))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestRouter_OrdersPage(t *testing.T) {
	router, ts := setupRouter(t)
	defer ts.Cleanup()

	mine := testutil.CreateTestReport(t, ts.DB, ts.Org, ts.Technician, models.StatusPending)
	theirs := testutil.CreateTestReport(t, ts.DB, ts.Org, ts.Other, models.StatusPending)

	rr := serve(router, pageRequest(http.MethodGet, "/dashboard/"+ts.Org.Slug+"/orders", nil, ts.TechnicianToken))
	testutil.AssertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	assert.Contains(t, body, mine.Title)
	assert.NotContains(t, body, theirs.Title)
	assert.Contains(t, body, "Tomás Técnico")
}

func TestRouter_CreateOrderForm(t *testing.T) {
	router, ts := setupRouter(t)
	defer ts.Cleanup()

	formPath := "/dashboard/" + ts.Org.Slug + "/orders/create"

	rr := serve(router, pageRequest(http.MethodGet, formPath, nil, ts.OwnerToken))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), ts.Technician.User.Email)

	var csrfToken string
	for _, c := range rr.Result().Cookies() {
		if c.Name == "csrf_token" {
			csrfToken = c.Value
		}
	}
	require.NotEmpty(t, csrfToken)
	assert.Contains(t, rr.Body.String(), `name="csrf_token" value="`+csrfToken+`"`)

	post := func(values url.Values) *httptest.ResponseRecorder {
		req := pageRequest(http.MethodPost, formPath, strings.NewReader(values.Encode()), ts.OwnerToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return serve(router, req)
	}

	t.Run("missing token", func(t *testing.T) {
		rr := post(url.Values{"title": {"Sin token"}})
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("wrong token", func(t *testing.T) {
		rr := post(url.Values{"title": {"Token falso"}, "csrf_token": {"forged"}})
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("invalid form is re-rendered", func(t *testing.T) {
		rr := post(url.Values{"title": {"   "}, "content": {"Se conserva"}, "csrf_token": {csrfToken}})
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		assert.Contains(t, rr.Body.String(), "Se conserva")
	})

	t.Run("created", func(t *testing.T) {
		rr := post(url.Values{
			"title":      {"Revisar tablero eléctrico"},
			"content":    {"Piso 3"},
			"assigneeId": {ts.Technician.ID.String()},
			"csrf_token": {csrfToken},
		})
		testutil.AssertStatus(t, rr, http.StatusSeeOther)
		assert.Equal(t, "/dashboard/"+ts.Org.Slug+"/orders", rr.Header().Get("Location"))

		var report models.Report
		require.NoError(t, ts.DB.Where("title = ?", "Revisar tablero eléctrico").First(&report).Error)
		assert.Equal(t, models.StatusPending, report.Status)
		require.NotNil(t, report.MemberID)
		assert.Equal(t, ts.Technician.ID, *report.MemberID)
	})
}

func TestRouter_APIUsesBearerTokens(t *testing.T) {
	router, ts := setupRouter(t)
	defer ts.Cleanup()

	req := testutil.AuthenticatedRequest(t, http.MethodPost, "/api/v1/"+ts.Org.Slug+"/orders",
		map[string]string{"title": "Desde la API"}, ts.TechnicianToken)
	rr := serve(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	req = testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/"+ts.Org.Slug+"/dashboard", nil, ts.TechnicianToken)
	rr = serve(router, req)
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestRouter_MemberCreateOrderForm(t *testing.T) {
	router, ts := setupRouter(t)
	defer ts.Cleanup()

	formPath := "/dashboard/" + ts.Org.Slug + "/orders/create"

	rr := serve(router, pageRequest(http.MethodGet, formPath, nil, ts.TechnicianToken))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.NotContains(t, rr.Body.String(), ts.Other.User.Email)

	var csrfToken string
	for _, c := range rr.Result().Cookies() {
		if c.Name == "csrf_token" {
			csrfToken = c.Value
		}
	}
	require.NotEmpty(t, csrfToken)

	post := func(values url.Values) *httptest.ResponseRecorder {
		req := pageRequest(http.MethodPost, formPath, strings.NewReader(values.Encode()), ts.TechnicianToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return serve(router, req)
	}

	rr = post(url.Values{"title": {"Para otro"}, "assigneeId": {ts.Other.ID.String()}, "csrf_token": {csrfToken}})
	testutil.AssertStatus(t, rr, http.StatusForbidden)

	var count int64
	require.NoError(t, ts.DB.Model(&models.Report{}).Where("title = ?", "Para otro").Count(&count).Error)
	assert.Zero(t, count)

	rr = post(url.Values{"title": {"Para mí"}, "csrf_token": {csrfToken}})
	testutil.AssertStatus(t, rr, http.StatusSeeOther)

	var report models.Report
	require.NoError(t, ts.DB.Where("title = ?", "Para mí").First(&report).Error)
	require.NotNil(t, report.MemberID)
	assert.Equal(t, ts.Technician.ID, *report.MemberID)
}

func TestRouter_RateLimitIgnoresForwardedFor(t *testing.T) {
	router, ts := setupRouter(t, func(cfg *api.RouterConfig) {
		cfg.RateLimitReqs = 1
		cfg.RateLimitSecs = 60
	})
	defer ts.Cleanup()

	get := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		req.RemoteAddr = "198.51.100.4:4000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		return serve(router, req).Code
	}

	assert.Equal(t, http.StatusOK, get("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, get("203.0.113.2"))
}
