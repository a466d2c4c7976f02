package handlers_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/fieldops/internal/api/handlers"
	"github.com/hugh/fieldops/internal/api/middleware"
	"github.com/hugh/fieldops/internal/auth"
	"github.com/hugh/fieldops/internal/dashboard"
	"github.com/hugh/fieldops/internal/testutil"
	"github.com/hugh/fieldops/internal/workorder"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTenantRouter mounts every organization-scoped API route behind the
// auth and tenant middleware.
func setupTenantRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	t.Helper()
	ts := testutil.NewTestContext(t)
	logger := testLogger()

	policy := workorder.MustNewPolicy()
	orders := workorder.NewService(ts.DB, policy, logger)
	dash := dashboard.NewService(ts.DB, policy, time.UTC, logger)

	orderHandler := handlers.NewOrderHandler(orders, logger)
	reportHandler := handlers.NewReportHandler(orders, logger)
	technicianHandler := handlers.NewTechnicianHandler(orders, logger)
	dashboardHandler := handlers.NewDashboardHandler(dash, logger)

	r := chi.NewRouter()
	r.Use(middleware.Auth(ts.JWTService))
	r.Route("/api/v1/{"+middleware.OrgSlugParam+"}", func(r chi.Router) {
		r.Use(middleware.Tenant(auth.NewOrgService(ts.DB), logger))

		r.Get("/orders", orderHandler.List)
		r.Post("/orders", orderHandler.Create)
		r.Get("/orders/{id}", orderHandler.Get)
		r.Patch("/orders/{id}", orderHandler.Update)
		r.Get("/orders/{id}/events", orderHandler.Events)
		r.Get("/orders/{id}/messages", orderHandler.Messages)
		r.Post("/orders/{id}/messages", orderHandler.PostMessage)

		r.Get("/reports", reportHandler.List)
		r.Get("/reports/{id}", reportHandler.Get)
		r.Get("/reports/{id}/corrections", reportHandler.Corrections)
		r.Post("/reports/{id}/corrections", reportHandler.CreateCorrection)
		r.Get("/corrections", reportHandler.ListCorrections)
		r.Post("/corrections", reportHandler.PostCorrection)
		r.Patch("/corrections", reportHandler.UpdateCorrection)

		r.Get("/technicians", technicianHandler.List)
		r.Get("/technicians/{id}", technicianHandler.Get)
		r.Get("/users", technicianHandler.Users)

		r.Get("/dashboard", dashboardHandler.Snapshot)
	})
	return r, ts
}

func orgPath(ts *testutil.TestSetup, path string) string {
	return "/api/v1/" + ts.Org.Slug + path
}
