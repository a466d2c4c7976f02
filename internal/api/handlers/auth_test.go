package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/fieldops/internal/api/dto"
	"github.com/hugh/fieldops/internal/api/handlers"
	"github.com/hugh/fieldops/internal/api/middleware"
	"github.com/hugh/fieldops/internal/auth"
	"github.com/hugh/fieldops/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	t.Helper()
	ts := testutil.NewTestContext(t)
	logger := testLogger()

	authService := auth.NewService(ts.DB, ts.JWTService)
	orgService := auth.NewOrgService(ts.DB)
	h := handlers.NewAuthHandler(authService, orgService, logger, ts.JWTService.Expiry(), false)

	r := chi.NewRouter()
	r.Post("/api/v1/auth/login", h.Login)
	r.Post("/api/v1/auth/logout", h.Logout)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(ts.JWTService))
		r.Get("/api/v1/me", h.Me)
		r.Get("/api/v1/organizations", h.Organizations)
	})
	return r, ts
}

func tokenCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.TokenCookie {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Login(t *testing.T) {
	router, ts := setupAuthRouter(t)
	defer ts.Cleanup()

	email := ts.Technician.User.Email

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
	}{
		{"valid credentials", map[string]string{"email": strings.ToUpper(email), "password": testutil.TestPassword}, http.StatusOK},
		{"wrong password", map[string]string{"email": email, "password": "wrong-password"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"email": "nobody@example.com", "password": testutil.TestPassword}, http.StatusUnauthorized},
		{"missing password", map[string]string{"email": email}, http.StatusBadRequest},
		{"malformed email", map[string]string{"email": "not-an-email", "password": "x"}, http.StatusBadRequest},
		{"malformed body", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/login", tt.body)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			testutil.AssertStatus(t, rr, tt.wantStatus)

			if tt.wantStatus != http.StatusOK {
				assert.Nil(t, tokenCookie(rr))
				return
			}

			var resp dto.AuthResponse
			testutil.ParseJSONResponse(t, rr, &resp)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, ts.Technician.UserID.String(), resp.User.ID)

			cookie := tokenCookie(rr)
			require.NotNil(t, cookie)
			assert.Equal(t, resp.Token, cookie.Value)
			assert.True(t, cookie.HttpOnly)
			assert.Equal(t, int((24 * time.Hour).Seconds()), cookie.MaxAge)
		})
	}
}

func TestAuthHandler_LoginForm(t *testing.T) {
	router, ts := setupAuthRouter(t)
	defer ts.Cleanup()

	post := func(values url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	rr := post(url.Values{"email": {ts.Owner.User.Email}, "password": {testutil.TestPassword}})
	testutil.AssertStatus(t, rr, http.StatusSeeOther)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))
	assert.NotNil(t, tokenCookie(rr))

	rr = post(url.Values{"email": {ts.Owner.User.Email}, "password": {"nope-nope"}})
	testutil.AssertStatus(t, rr, http.StatusSeeOther)
	assert.Equal(t, "/login?error=credentials", rr.Header().Get("Location"))
	assert.Nil(t, tokenCookie(rr))

	rr = post(url.Values{"email": {""}})
	testutil.AssertStatus(t, rr, http.StatusSeeOther)
	assert.Equal(t, "/login?error=invalid", rr.Header().Get("Location"))
}

func TestAuthHandler_LoginInactive(t *testing.T) {
	router, ts := setupAuthRouter(t)
	defer ts.Cleanup()

	require.NoError(t, ts.DB.Model(ts.Other.User).Update("is_active", false).Error)

	req := testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": ts.Other.User.Email, "password": testutil.TestPassword})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestAuthHandler_Logout(t *testing.T) {
	router, ts := setupAuthRouter(t)
	defer ts.Cleanup()

	req := testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/logout", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	cookie := tokenCookie(rr)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestAuthHandler_Me(t *testing.T) {
	router, ts := setupAuthRouter(t)
	defer ts.Cleanup()

	req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/me", nil, ts.TechnicianToken)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp dto.MeResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, "Tomás Técnico", resp.User.Name)
	require.Len(t, resp.Organizations, 1)
	assert.Equal(t, ts.Org.Slug, resp.Organizations[0].Slug)

	req = testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/v1/me", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestAuthHandler_Organizations(t *testing.T) {
	router, ts := setupAuthRouter(t)
	defer ts.Cleanup()

	// A user without memberships sees an empty list, not null.
	loner := testutil.CreateTestUser(t, ts.DB, "Solo")
	token := testutil.GenerateTestToken(t, ts.JWTService, loner)

	req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/organizations", nil, token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, "[]", rr.Body.String())
}
