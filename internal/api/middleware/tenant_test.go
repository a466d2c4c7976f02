package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/auth"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	org    *models.Organization
	member *models.Member
	err    error
}

func (s stubResolver) ActiveMember(_ context.Context, _ uuid.UUID, slug string) (*models.Organization, *models.Member, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	if slug != s.org.Slug {
		return nil, nil, auth.ErrOrganizationNotFound
	}
	return s.org, s.member, nil
}

func tenantRouter(t *testing.T, resolver auth.MembershipResolver) (http.Handler, string) {
	t.Helper()
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	token, err := jwtService.GenerateToken(uuid.New(), "a@b.co", "user")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(Auth(jwtService))
	r.With(Tenant(resolver, slog.Default())).Get("/api/v1/{organizationSlug}/orders", func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenant.FromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(tc.Organization.Slug + ":" + string(tc.Role())))
	})
	return r, token
}

func TestTenant(t *testing.T) {
	org := &models.Organization{Base: models.Base{ID: uuid.New()}, Slug: "acme"}
	member := &models.Member{Base: models.Base{ID: uuid.New()}, OrganizationID: org.ID, Role: models.RoleAdmin}

	tests := []struct {
		name     string
		resolver stubResolver
		path     string
		status   int
		body     string
	}{
		{"member resolved", stubResolver{org: org, member: member}, "/api/v1/acme/orders", http.StatusOK, "acme:admin"},
		{"unknown organization", stubResolver{org: org, member: member}, "/api/v1/nope/orders", http.StatusNotFound, "Organization not found"},
		{"not a member", stubResolver{err: auth.ErrNotMember}, "/api/v1/acme/orders", http.StatusForbidden, "Not a member"},
		{"store failure", stubResolver{err: errors.New("db down")}, "/api/v1/acme/orders", http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, token := tenantRouter(t, tt.resolver)
			req := httptest.NewRequest("GET", tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestTenant_Unauthenticated(t *testing.T) {
	handler := Tenant(stubResolver{}, slog.Default())(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/acme/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
