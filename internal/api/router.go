package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hugh/fieldops/internal/api/handlers"
	"github.com/hugh/fieldops/internal/api/middleware"
	"github.com/hugh/fieldops/internal/auth"
	"github.com/hugh/fieldops/internal/dashboard"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/web"
	"github.com/hugh/fieldops/internal/workorder"
	"github.com/hugh/fieldops/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
	limiter *middleware.RateLimiter
	csrf    *middleware.CSRFStore
}

// Close stops the background cleanup of the rate limiter and CSRF store.
func (rt *Router) Close() {
	if rt.limiter != nil {
		rt.limiter.Stop()
	}
	rt.csrf.Stop()
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	OrgService     *auth.OrgService
	Orders         *workorder.Service
	Dashboard      *dashboard.Service
	Templates      *web.Templates
	StaticFS       fs.FS
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
	TrustProxy     bool     // Key rate limits on X-Forwarded-For / X-Real-IP
	SecureCookies  bool
}

func NewRouter(cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(metrics.Middleware)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitReqs > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitSecs, cfg.TrustProxy)
		r.Use(limiter.Middleware)
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Auth-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	expiry := 24 * time.Hour
	if cfg.JWTService != nil {
		expiry = cfg.JWTService.Expiry()
	}
	csrfStore := middleware.NewCSRFStore()

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.OrgService, cfg.Logger, expiry, cfg.SecureCookies)
	adminHandler := handlers.NewAdminHandler(cfg.AuthService, cfg.OrgService, cfg.Logger)
	orderHandler := handlers.NewOrderHandler(cfg.Orders, cfg.Logger)
	reportHandler := handlers.NewReportHandler(cfg.Orders, cfg.Logger)
	technicianHandler := handlers.NewTechnicianHandler(cfg.Orders, cfg.Logger)
	dashboardHandler := handlers.NewDashboardHandler(cfg.Dashboard, cfg.Logger)
	pageHandler := handlers.NewPageHandler(cfg.Orders, cfg.Dashboard, cfg.OrgService, cfg.Templates, csrfStore, cfg.Logger)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))

			r.Get("/me", authHandler.Me)
			r.Get("/organizations", authHandler.Organizations)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.PlatformRoleAdmin))
				r.Post("/users", adminHandler.CreateUser)
				r.Get("/users", adminHandler.ListUsers)
				r.Get("/organizations", adminHandler.ListOrganizations)
				r.Post("/organizations", adminHandler.CreateOrganization)
				r.Get("/organizations/{slug}", adminHandler.GetOrganization)
				r.Post("/organizations/{slug}/members", adminHandler.AddMember)
			})

			r.Route("/{"+middleware.OrgSlugParam+"}", func(r chi.Router) {
				r.Use(middleware.Tenant(cfg.OrgService, cfg.Logger))

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", orderHandler.List)
					r.Post("/", orderHandler.Create)
					r.Get("/{id}", orderHandler.Get)
					r.Patch("/{id}", orderHandler.Update)
					r.Get("/{id}/events", orderHandler.Events)
					r.Get("/{id}/messages", orderHandler.Messages)
					r.Post("/{id}/messages", orderHandler.PostMessage)
				})

				r.Route("/reports", func(r chi.Router) {
					r.Get("/", reportHandler.List)
					r.Get("/{id}", reportHandler.Get)
					r.Get("/{id}/corrections", reportHandler.Corrections)
					r.Post("/{id}/corrections", reportHandler.CreateCorrection)
				})

				r.Get("/corrections", reportHandler.ListCorrections)
				r.Post("/corrections", reportHandler.PostCorrection)
				r.Patch("/corrections", reportHandler.UpdateCorrection)

				r.Get("/technicians", technicianHandler.List)
				r.Get("/technicians/{id}", technicianHandler.Get)
				r.Get("/users", technicianHandler.Users)

				r.Get("/dashboard", dashboardHandler.Snapshot)
			})
		})
	})

	// Web pages
	r.Get("/login", pageHandler.Login)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTService))
		r.Use(middleware.CSRF(csrfStore))

		r.Get("/dashboard", pageHandler.Index)
		r.Route("/dashboard/{"+middleware.OrgSlugParam+"}", func(r chi.Router) {
			r.Use(middleware.Tenant(cfg.OrgService, cfg.Logger))
			r.Get("/", pageHandler.Dashboard)
			r.Get("/orders", pageHandler.Orders)
			r.Get("/orders/create", pageHandler.CreateOrderForm)
			r.Post("/orders/create", pageHandler.CreateOrder)
		})
	})

	// Static files
	if cfg.StaticFS != nil {
		fileServer := http.FileServer(http.FS(cfg.StaticFS))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	return &Router{Router: r, limiter: limiter, csrf: csrfStore}
}
