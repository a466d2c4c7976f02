package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/auth"
	"github.com/hugh/fieldops/internal/tenant"
)

// OrgSlugParam is the route parameter naming the organization.
const OrgSlugParam = "organizationSlug"

// Tenant resolves the caller's membership in the organization named by the
// route and stores it in the request context. It must run after Auth.
func Tenant(resolver auth.MembershipResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == uuid.Nil {
				handleUnauthorized(w, r)
				return
			}

			slug := chi.URLParam(r, OrgSlugParam)
			org, member, err := resolver.ActiveMember(r.Context(), userID, slug)
			switch {
			case err == nil:
			case errors.Is(err, auth.ErrOrganizationNotFound):
				writeError(w, http.StatusNotFound, "Organization not found")
				return
			case errors.Is(err, auth.ErrNotMember):
				writeError(w, http.StatusForbidden, "Not a member of this organization")
				return
			default:
				logger.Error("resolving membership", "slug", slug, "user_id", userID, "error", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := tenant.WithContext(r.Context(), tenant.New(org, member))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
